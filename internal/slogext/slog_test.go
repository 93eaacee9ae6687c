// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slogext

import (
	"fmt"
	"testing"
	"time"
)

func TestStringer(t *testing.T) {
	for _, test := range []struct {
		name string
		val  fmt.Stringer
		want string
	}{
		{name: "nil", val: nil, want: "<nil>"},
		{name: "stringer", val: time.Second, want: "1s"},
	} {
		t.Run(test.name, func(t *testing.T) {
			got := Stringer{Stringer: test.val}.LogValue().String()
			if got != test.want {
				t.Errorf("unexpected log value: got=%q want=%q", got, test.want)
			}
		})
	}
}
