package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInstancesCommandStructure(t *testing.T) {
	assert.NotNil(t, instancesCmd)
	assert.Equal(t, "instances <type>", instancesCmd.Use)
	assert.NotEmpty(t, instancesCmd.Short)
	assert.NotEmpty(t, instancesCmd.Long)
	assert.NotNil(t, instancesCmd.RunE)
}

func TestInstancesCommandFlags(t *testing.T) {
	limitFlag, err := instancesCmd.Flags().GetInt("limit")
	assert.NoError(t, err)
	assert.Equal(t, 0, limitFlag)
}

func TestInstancesRequiresTypeArgument(t *testing.T) {
	assert.Error(t, instancesCmd.Args(instancesCmd, []string{}))
	assert.NoError(t, instancesCmd.Args(instancesCmd, []string{"Object"}))
	assert.Error(t, instancesCmd.Args(instancesCmd, []string{"Object", "Array"}))
}

func TestRunInstancesWithoutImage(t *testing.T) {
	saveFlags(t)
	cfgFile = ""
	imagePath = ""

	err := runInstances(instancesCmd, []string{"Object"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "image")
}
