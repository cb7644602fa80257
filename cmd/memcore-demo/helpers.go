package main

import (
	"github.com/johnkennedy-cmyk/local-agent-memory-layer/internal/storage"
	"github.com/johnkennedy-cmyk/local-agent-memory-layer/pkg/types"
)

func emptyFilter() storage.MemoryFilter {
	return storage.MemoryFilter{}
}

func catPtr(c types.MemoryCategory) *types.MemoryCategory {
	return &c
}

func strPtr(s string) *string {
	return &s
}
