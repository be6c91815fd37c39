package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	blocks := Default()
	assert.Equal(t, "Block 1", blocks.Name("1"))
	assert.Equal(t, "Junior Seminar", blocks.Name("M11"))
	assert.Equal(t, "Lunch", blocks.Name("L"))
	assert.Equal(t, "Office Hours", blocks.Name("OH"))
	assert.Equal(t, "Z9", blocks.Name("Z9"))

	all := blocks.All()
	require.Len(t, all, 16)
	assert.Equal(t, "1", all[0].Code)
	assert.Equal(t, "OH", all[len(all)-1].Code)
}

func TestParseBlocksRejectsDuplicates(t *testing.T) {
	_, err := ParseBlocks([]byte("blocks:\n  - code: A\n    name: one\n  - code: A\n    name: two\n"))
	assert.Error(t, err)
}
