// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import "strings"

// AppendURLPathSegment returns base + "/" + segment + "/", inserting the
// separator only when base does not already end with one. The result is
// always directory-shaped.
func AppendURLPathSegment(base, segment string) string {
	var sb strings.Builder
	sb.Grow(len(base) + len(segment) + 2)
	sb.WriteString(base)
	if !strings.HasSuffix(base, "/") {
		sb.WriteByte('/')
	}
	sb.WriteString(segment)
	sb.WriteByte('/')
	return sb.String()
}

// DirectoryURL makes location directory-shaped without adding a segment.
func DirectoryURL(location string) string {
	if strings.HasSuffix(location, "/") {
		return location
	}
	return location + "/"
}

// FileURL joins a directory-shaped location and a file name.
func FileURL(location, filename string) string {
	return DirectoryURL(location) + filename
}
