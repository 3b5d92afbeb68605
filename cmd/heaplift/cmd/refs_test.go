package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefsCommandStructure(t *testing.T) {
	assert.NotNil(t, refsCmd)
	assert.Equal(t, "refs [address]", refsCmd.Use)
	assert.NotEmpty(t, refsCmd.Short)
	assert.NotEmpty(t, refsCmd.Long)
	assert.NotNil(t, refsCmd.RunE)
}

func TestRefsCommandFlags(t *testing.T) {
	nameFlag, err := refsCmd.Flags().GetString("name")
	assert.NoError(t, err)
	assert.Equal(t, "", nameFlag)

	stringFlag, err := refsCmd.Flags().GetString("string")
	assert.NoError(t, err)
	assert.Equal(t, "", stringFlag)

	recursiveFlag, err := refsCmd.Flags().GetBool("recursive")
	assert.NoError(t, err)
	assert.False(t, recursiveFlag)

	noColorFlag, err := refsCmd.Flags().GetBool("no-color")
	assert.NoError(t, err)
	assert.False(t, noColorFlag)
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		want    uint64
		wantErr bool
	}{
		{
			name: "with 0x prefix",
			arg:  "0x3f4a8c0d2231",
			want: 0x3f4a8c0d2231,
		},
		{
			name: "without prefix",
			arg:  "deadbeef",
			want: 0xdeadbeef,
		},
		{
			name: "uppercase prefix and digits",
			arg:  "0XDEADBEEF",
			want: 0xdeadbeef,
		},
		{
			name:    "not hex",
			arg:     "hello",
			wantErr: true,
		},
		{
			name:    "empty",
			arg:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAddress(tt.arg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunRefsFlagValidation(t *testing.T) {
	originalName := refsName
	originalString := refsString
	defer func() {
		refsName = originalName
		refsString = originalString
	}()

	// --name and --string together are rejected before any image access
	refsName = "request"
	refsString = "hello"
	err := runRefs(refsCmd, []string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")

	// neither a search mode nor an address is an error
	refsName = ""
	refsString = ""
	err = runRefs(refsCmd, []string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address argument is required")
}

func TestRunRefsInvalidAddress(t *testing.T) {
	saveFlags(t)
	originalName := refsName
	originalString := refsString
	defer func() {
		refsName = originalName
		refsString = originalString
	}()
	refsName = ""
	refsString = ""
	cfgFile = ""
	imagePath = ""

	// Missing image is reported before the address is parsed
	err := runRefs(refsCmd, []string{"nothex"})
	assert.Error(t, err)
}
