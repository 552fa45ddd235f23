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

package log

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLevelAndOutput(t *testing.T) {
	Convey("The wrapper drives the standard logrus logger", t, func() {
		var buf bytes.Buffer
		SetOutput(&buf)
		Reset(func() {
			SetLevel(logrus.InfoLevel)
		})

		Convey("Entries below the level are suppressed", func() {
			SetLevel(logrus.WarnLevel)
			Info("quiet")
			So(buf.String(), ShouldBeEmpty)
			Warn("loud")
			So(buf.String(), ShouldContainSubstring, "loud")
		})

		Convey("String levels parse with a fallback", func() {
			SetStringLevel("debug", logrus.InfoLevel)
			So(logrus.GetLevel(), ShouldEqual, logrus.DebugLevel)

			SetStringLevel("not-a-level", logrus.InfoLevel)
			So(logrus.GetLevel(), ShouldEqual, logrus.InfoLevel)
		})

		Convey("Fields and errors show up in the entry", func() {
			SetLevel(logrus.InfoLevel)
			WithFields(Fields{"height": 7}).Info("committed")
			So(buf.String(), ShouldContainSubstring, "height")
			So(buf.String(), ShouldContainSubstring, "committed")
		})
	})
}
