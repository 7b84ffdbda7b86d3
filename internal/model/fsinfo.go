// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the FSInfo struct, which ties parsed blocks back to the
// file they were declared in so errors can name it.
package model

// FSInfo records where a block was declared.
type FSInfo struct {
	FilePath string
}

// NewFSInfo returns the FSInfo of filePath.
func NewFSInfo(filePath string) *FSInfo {
	return &FSInfo{
		FilePath: filePath,
	}
}
