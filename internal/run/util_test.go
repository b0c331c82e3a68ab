// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package run

import (
	"github.com/google/go-cmp/cmp/cmpopts"

	"go.chromium.org/e2cloud/internal/discovery"
	"go.chromium.org/e2cloud/internal/invoke"
)

func staticNames(names ...string) discovery.Source {
	return discovery.StaticSource(names)
}

// sortRequests compares invocation requests regardless of order, since
// concurrent invocations complete in any order.
var sortRequests = cmpopts.SortSlices(func(a, b invoke.Request) bool { return a.TestName < b.TestName })
