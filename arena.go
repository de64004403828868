// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Per-request arena: a scope that owns the request's transient
// allocations (temp files from multipart uploads chief among them) and
// releases them all at once in finalize (spec §3, §4.5, §5: "The
// per-request arena releases all parser allocations at once"). Go's
// GC already reclaims ordinary heap allocations, so this arena's only
// real job — unlike the teacher's bump allocator, which exists to
// dodge per-request heap traffic in a zero-dependency, allocation-
// budgeted server — is tracking the one resource the GC can't reclaim
// for us: files on disk.
package brisk

import (
	"io"
	"mime/multipart"
	"os"
)

type arena struct {
	tempFiles []string
}

func newArena() *arena { return &arena{} }

// spoolUpload copies one multipart file part to a temp file and
// records it for cleanup.
func (a *arena) spoolUpload(part *multipart.Part) *UploadedFile {
	f, err := os.CreateTemp("", "brisk-upload-*")
	if err != nil {
		return &UploadedFile{}
	}
	defer f.Close()
	n, _ := io.Copy(f, part)
	a.tempFiles = append(a.tempFiles, f.Name())
	return &UploadedFile{TempPath: f.Name(), Size: n}
}

// release deletes every temp file the arena tracked, matching spec
// §4.5: "Temporary files from uploaded form parts are deleted."
func (a *arena) release() {
	for _, path := range a.tempFiles {
		os.Remove(path)
	}
	a.tempFiles = nil
}
