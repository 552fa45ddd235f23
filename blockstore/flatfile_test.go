/*
 * Copyright 2019 The QuorumNet Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package blockstore

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"os"
	"path"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestFlatFile(t *testing.T) {
	Convey("Given a flat file store in a fresh directory", t, func() {
		dir, err := ioutil.TempDir("", "flatfile_test")
		So(err, ShouldBeNil)
		Reset(func() { os.RemoveAll(dir) })

		ff, err := New(dir)
		So(err, ShouldBeNil)
		So(ff.Last(), ShouldEqual, 0)

		Convey("When blocks are added in height order", func() {
			for h := uint64(1); h <= 3; h++ {
				err = ff.Add(h, []byte(fmt.Sprintf("block-%d", h)))
				So(err, ShouldBeNil)
			}

			Convey("The entries read back and the top height tracks", func() {
				So(ff.Last(), ShouldEqual, 3)
				for h := uint64(1); h <= 3; h++ {
					blob, err := ff.Get(h)
					So(err, ShouldBeNil)
					So(bytes.Equal(blob, []byte(fmt.Sprintf("block-%d", h))), ShouldBeTrue)
					So(ff.Has(h), ShouldBeTrue)
				}
				So(ff.Has(4), ShouldBeFalse)
			})

			Convey("Heights are write-once", func() {
				err = ff.Add(2, []byte("overwrite"))
				So(err, ShouldNotBeNil)
				blob, err := ff.Get(2)
				So(err, ShouldBeNil)
				So(string(blob), ShouldEqual, "block-2")
			})

			Convey("A reopened store recovers the top height", func() {
				ff2, err := New(dir)
				So(err, ShouldBeNil)
				So(ff2.Last(), ShouldEqual, 3)
			})

			Convey("DropAll wipes every entry and resets the top", func() {
				So(ff.DropAll(), ShouldBeNil)
				So(ff.Last(), ShouldEqual, 0)
				_, err = ff.Get(1)
				So(err, ShouldEqual, ErrNotFound)
			})
		})

		Convey("Getting an absent height yields ErrNotFound", func() {
			_, err = ff.Get(42)
			So(err, ShouldEqual, ErrNotFound)
		})

		Convey("Unrelated files in the directory are ignored on recovery", func() {
			So(ioutil.WriteFile(path.Join(dir, "notes.txt"), []byte("x"), 0644), ShouldBeNil)
			So(ff.Add(7, []byte("seven")), ShouldBeNil)
			ff2, err := New(dir)
			So(err, ShouldBeNil)
			So(ff2.Last(), ShouldEqual, 7)
		})
	})

	Convey("A store under an uncreatable directory fails with the path in the error", t, func() {
		f, err := ioutil.TempFile("", "flatfile_collision")
		So(err, ShouldBeNil)
		f.Close()
		Reset(func() { os.Remove(f.Name()) })

		_, err = New(path.Join(f.Name(), "sub"))
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, f.Name())
	})
}
