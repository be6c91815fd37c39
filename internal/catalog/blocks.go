// Package catalog holds the school's static block catalog.
package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed blocks.yaml
var blocksYAML []byte

// Block is one named period within a cycle day.
type Block struct {
	Code string `yaml:"code" json:"code"`
	Name string `yaml:"name" json:"name"`
}

// Blocks maps block codes to display names while keeping bell order.
type Blocks struct {
	ordered []Block
	byCode  map[string]string
}

type blocksFile struct {
	Blocks []Block `yaml:"blocks"`
}

// ParseBlocks decodes a YAML block catalog.
func ParseBlocks(data []byte) (*Blocks, error) {
	var file blocksFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse block catalog: %w", err)
	}
	blocks := &Blocks{byCode: make(map[string]string, len(file.Blocks))}
	for _, b := range file.Blocks {
		if b.Code == "" {
			return nil, fmt.Errorf("parse block catalog: block with empty code")
		}
		if _, dup := blocks.byCode[b.Code]; dup {
			return nil, fmt.Errorf("parse block catalog: duplicate block %q", b.Code)
		}
		blocks.byCode[b.Code] = b.Name
		blocks.ordered = append(blocks.ordered, b)
	}
	return blocks, nil
}

// Default returns the embedded catalog. It panics if the embedded file is malformed.
func Default() *Blocks {
	blocks, err := ParseBlocks(blocksYAML)
	if err != nil {
		panic(err)
	}
	return blocks
}

// Name returns the display name for code, or the code itself when unknown.
func (b *Blocks) Name(code string) string {
	if b == nil {
		return code
	}
	if name, ok := b.byCode[code]; ok {
		return name
	}
	return code
}

// All returns the catalog in bell order.
func (b *Blocks) All() []Block {
	out := make([]Block, len(b.ordered))
	copy(out, b.ordered)
	return out
}
