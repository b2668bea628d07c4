package scoring_test

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/hrdesk/internal/domain/form"
	"github.com/okian/hrdesk/internal/domain/scoring"
)

func TestGradeScale(t *testing.T) {
	Convey("Given the 0-20 grade scale", t, func() {
		s := scoring.GradeScale

		Convey("Blank means no grade", func() {
			v, msg := s.Parse("  ")
			So(v, ShouldBeNil)
			So(msg, ShouldBeEmpty)
		})

		Convey("Values on the scale parse, with comma decimals", func() {
			v, msg := s.Parse("15,5")
			So(msg, ShouldBeEmpty)
			So(*v, ShouldEqual, 15.5)
			v, _ = s.Parse("0")
			So(*v, ShouldEqual, 0)
		})

		Convey("Values off the scale are rejected", func() {
			_, msg := s.Parse("21")
			So(msg, ShouldEqual, "Debe ser menor o igual a 20.")
			_, msg = s.Parse("-1")
			So(msg, ShouldEqual, "Debe ser mayor o igual a 0.")
			_, msg = s.Parse("abc")
			So(msg, ShouldEqual, form.MsgNumber)
			So(s.Check(math.NaN()), ShouldEqual, form.MsgNumber)
		})
	})
}

func TestReviewScores(t *testing.T) {
	Convey("Given review scores", t, func() {
		So(scoring.CheckScore(3, false), ShouldBeEmpty)
		So(scoring.CheckScore(6, false), ShouldEqual, "Debe ser menor o igual a 5.")
		So(scoring.CheckScore(0, true), ShouldBeEmpty)
		So(scoring.CheckScore(0, false), ShouldEqual, form.MsgRequired)
		So(scoring.ReviewScale.Check(2.5), ShouldEqual, form.MsgNumber)
	})

	Convey("The average ignores unscored details", t, func() {
		avg, ok := scoring.Average([]int{4, 0, 5, 3})
		So(ok, ShouldBeTrue)
		So(avg, ShouldEqual, 4)

		avg, ok = scoring.Average([]int{5, 4, 4})
		So(ok, ShouldBeTrue)
		So(avg, ShouldEqual, 4.33)

		_, ok = scoring.Average([]int{0, 0})
		So(ok, ShouldBeFalse)
	})
}
