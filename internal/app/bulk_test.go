package service_test

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/hrdesk/internal/adapters/mq/queue"
	service "github.com/okian/hrdesk/internal/app"
	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/pkg/logger"
)

func TestDispatcher(t *testing.T) {
	Convey("Given a dispatcher over a queue nobody drains", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(1))
		d := service.NewDispatcher(q, logger.Nop())
		muts := []model.Mutation{{Key: "a"}, {Key: "b"}}

		Convey("Refused and unanswered items are both reported as failed", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			report := d.Dispatch(ctx, "test", muts)
			So(report.Total, ShouldEqual, 2)
			So(report.Succeeded, ShouldBeEmpty)
			So(len(report.Failed), ShouldEqual, 2)
			So(report.Failed[0].Message, ShouldEqual, service.MsgNoReply)
			So(report.Failed[1].Message, ShouldEqual, service.MsgQueueFull)
		})

		Convey("An empty batch is trivially OK", func() {
			report := d.Dispatch(context.Background(), "test", nil)
			So(report.OK(), ShouldBeTrue)
			So(report.Total, ShouldEqual, 0)
		})
	})
}
