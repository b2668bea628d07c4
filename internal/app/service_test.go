package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/hrdesk/internal/app"
	"github.com/okian/hrdesk/internal/domain/catalog"
	"github.com/okian/hrdesk/internal/domain/flows"
	"github.com/okian/hrdesk/internal/domain/form"
	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/internal/domain/types"
	"github.com/okian/hrdesk/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func started(b *fakeBackend) *service.Service {
	svc := service.New(
		service.WithBackend(b),
		service.WithWorkerCount(3),
		service.WithQueueSize(100),
		service.WithLogger(logger.Nop()),
	)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service without a backend", t, func() {
		svc := service.New()

		Convey("Start refuses to run", func() {
			So(svc.Start(context.Background()), ShouldEqual, service.ErrNoBackend)
			So(svc.Ready(), ShouldBeFalse)
		})
	})

	Convey("Given a started service", t, func() {
		svc := started(newFakeBackend())
		defer svc.Stop()

		Convey("It reports its state", func() {
			So(svc.Ready(), ShouldBeTrue)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["workerCount"], ShouldEqual, 3)
			So(stats["catalogs"], ShouldBeGreaterThan, 0)
		})

		Convey("Starting twice is a no-op", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
		})
	})
}

func TestService_Catalogs(t *testing.T) {
	Convey("Given catalogs backed by a fake backend", t, func() {
		b := newFakeBackend()
		b.lists["/api/core/genders/"] = []model.Item{{"id": float64(1), "name": "Femenino"}}
		b.lists["/api/organization/departments/"] = []model.Item{
			{"id": float64(1), "name": "Ventas"},
			{"id": float64(2), "name": "TI"},
		}
		b.lists["/api/organization/jobtitles/"] = []model.Item{{"id": float64(5), "name": "Analista"}}
		b.lists["/api/organization/positions/"] = []model.Item{
			{"id": float64(7), "code": "P-7", "department": float64(2), "job_title": float64(5), "manager": nil},
		}
		b.lists["/api/talent/business-functions/"] = []model.Item{}
		svc := started(b)
		defer svc.Stop()
		ctx := context.Background()

		Convey("A table page labels select columns", func() {
			page, err := svc.Table(ctx, "positions", service.TableQuery{Page: 1})
			So(err, ShouldBeNil)
			So(page.Pagination.PageSize, ShouldEqual, 10)
			So(len(page.Rows), ShouldEqual, 1)
			var dept catalog.Column
			for _, c := range page.Catalog.Columns {
				if c.Key == "department" {
					dept = c
				}
			}
			So(page.Cell(page.Rows[0], dept), ShouldEqual, "TI")
		})

		Convey("An unknown catalog is an error", func() {
			_, err := svc.Table(ctx, "nope", service.TableQuery{Page: 1, Size: 10})
			So(errors.Is(err, catalog.ErrUnknownCatalog), ShouldBeTrue)
		})

		Convey("A changed page size returns to the first page", func() {
			page, err := svc.Table(ctx, "positions", service.TableQuery{Page: 4, Size: 20, PrevSize: 10})
			So(err, ShouldBeNil)
			So(page.Pagination.Page, ShouldEqual, 1)
			So(page.Pagination.PageSize, ShouldEqual, 20)

			q := service.TableQuery{Page: 4, Size: 20, PrevSize: 20}
			So(q.Pagination(10).Page, ShouldEqual, 4)
			So(service.TableQuery{Page: 2}.Pagination(10), ShouldResemble, catalog.Pagination{Page: 2, PageSize: 10})
		})

		Convey("No fetch is reported in flight once options resolved", func() {
			loading, err := svc.OptionsLoading("positions", "department", "", false)
			So(err, ShouldBeNil)
			So(loading, ShouldBeFalse)

			_, err = svc.OptionsLoading("positions", "code", "", false)
			So(errors.Is(err, service.ErrUnknownField), ShouldBeTrue)
		})

		Convey("A new form disables selects whose dependency is empty", func() {
			page, err := svc.Form(ctx, "positions", "", nil)
			So(err, ShouldBeNil)
			So(page.Token, ShouldNotBeEmpty)
			So(page.Editing(), ShouldBeFalse)
			for _, f := range page.Fields {
				switch f.Name {
				case "manager":
					So(f.Disabled, ShouldBeTrue)
					So(f.Options, ShouldBeEmpty)
				case "department":
					So(len(f.Options), ShouldEqual, 2)
				case "vacancies":
					So(f.Value, ShouldEqual, "1")
				}
			}
		})

		Convey("Ignoring the dependency lists every manager", func() {
			page, err := svc.Form(ctx, "positions", "", map[string]bool{"manager": true})
			So(err, ShouldBeNil)
			for _, f := range page.Fields {
				if f.Name == "manager" {
					So(f.Disabled, ShouldBeFalse)
					So(len(f.Options), ShouldEqual, 1)
					So(f.Options[0].Label, ShouldEqual, "P-7")
				}
			}
		})

		Convey("Dependent options are filtered by the dependency value", func() {
			set, err := svc.FieldOptions(ctx, "positions", "manager", "1", false)
			So(err, ShouldBeNil)
			So(set.Options, ShouldBeEmpty)
			set, err = svc.FieldOptions(ctx, "positions", "manager", "2", false)
			So(err, ShouldBeNil)
			So(len(set.Options), ShouldEqual, 1)

			_, err = svc.FieldOptions(ctx, "positions", "code", "", false)
			So(errors.Is(err, service.ErrUnknownField), ShouldBeTrue)
		})

		Convey("A valid create posts once and a resubmit is refused", func() {
			in := service.SubmitInput{Token: "tok-1", Values: map[string]any{"name": "Otro"}}
			res, err := svc.Submit(ctx, "genders", in)
			So(err, ShouldBeNil)
			So(res.Outcome, ShouldEqual, catalog.OutcomeCreated)

			res, err = svc.Submit(ctx, "genders", in)
			So(err, ShouldBeNil)
			So(res.Outcome, ShouldEqual, service.OutcomeResubmitted)
			So(res.Feedback.Banner, ShouldEqual, service.MsgAlreadySubmitted)
			So(b.count("POST", "/api/core/genders/"), ShouldEqual, 1)
		})

		Convey("An invalid submit sends nothing and frees its token", func() {
			in := service.SubmitInput{Token: "tok-2", Values: map[string]any{"name": ""}}
			res, err := svc.Submit(ctx, "genders", in)
			So(err, ShouldBeNil)
			So(res.Outcome, ShouldEqual, catalog.OutcomeInvalid)
			So(res.Feedback.Fields["name"], ShouldEqual, form.MsgRequired)

			in.Values["name"] = "Ok"
			res, _ = svc.Submit(ctx, "genders", in)
			So(res.Outcome, ShouldEqual, catalog.OutcomeCreated)
		})

		Convey("Creating a department refreshes cached department options", func() {
			set, _ := svc.FieldOptions(ctx, "positions", "department", "", false)
			So(len(set.Options), ShouldEqual, 2)
			_, err := svc.Submit(ctx, "departments", service.SubmitInput{Values: map[string]any{"name": "RRHH"}})
			So(err, ShouldBeNil)
			set, _ = svc.FieldOptions(ctx, "positions", "department", "", false)
			So(len(set.Options), ShouldEqual, 3)
		})

		Convey("A delete blocked by dependencies keeps the row", func() {
			b.fail["DELETE /api/core/genders/1/"] = &statusErr{status: 400, body: `{"detail": "dependencies"}`}
			res, err := svc.Delete(ctx, "genders", "1")
			So(err, ShouldBeNil)
			So(res.OK, ShouldBeFalse)
			So(res.Banner, ShouldEqual, catalog.MsgDeleteDependencies)
		})

		Convey("Editing a record prefills it", func() {
			b.items["/api/organization/positions/7/"] = b.lists["/api/organization/positions/"][0]
			page, err := svc.Form(ctx, "positions", "7", nil)
			So(err, ShouldBeNil)
			So(page.Editing(), ShouldBeTrue)
			for _, f := range page.Fields {
				if f.Name == "department" {
					So(f.Value, ShouldEqual, "2")
					So(f.Selected("2"), ShouldBeTrue)
				}
				if f.Name == "manager" {
					So(f.Disabled, ShouldBeFalse)
				}
			}

			_, err = svc.Form(ctx, "positions", "99", nil)
			So(err, ShouldNotBeNil)
		})

		Convey("An update naming some fields keeps the stored ones", func() {
			b.items["/api/core/phone-area-codes/5/"] = model.Item{
				"id": float64(5), "code": "414", "type": "MOBILE",
				"country": float64(1), "carrier": map[string]any{"id": float64(3), "name": "Movilnet"},
			}
			res, err := svc.Submit(ctx, "phone-area-codes", service.SubmitInput{ID: "5", Values: map[string]any{"code": "412"}})
			So(err, ShouldBeNil)
			So(res.Outcome, ShouldEqual, catalog.OutcomeUpdated)

			patch, ok := b.last("PATCH", "/api/core/phone-area-codes/5/")
			So(ok, ShouldBeTrue)
			So(patch.Payload, ShouldResemble, map[string]any{
				"code":    "412",
				"type":    "MOBILE",
				"country": int64(1),
				"carrier": int64(3),
			})
		})

		Convey("Refill keeps submitted values and feedback", func() {
			page, err := svc.Refill(ctx, "genders", "", map[string]any{"name": "X"},
				form.Feedback{Fields: map[string]string{"name": "Ya existe."}, Banner: "b"}, nil)
			So(err, ShouldBeNil)
			So(page.Banner, ShouldEqual, "b")
			So(page.Fields[0].Value, ShouldEqual, "X")
			So(page.Fields[0].Error, ShouldEqual, "Ya existe.")
		})
	})
}

func roster(b *fakeBackend) {
	b.items["/api/training/sessions/3/"] = model.Item{"id": float64(3), "course": float64(9)}
	b.lists[flows.ParticipantsPath] = []model.Item{
		{"id": float64(1), "course": float64(9), "person_name": "Ana", "role": "EST", "enrollment_status": "ENR"},
		{"id": float64(2), "course": float64(9), "person_name": "Luis", "role": "EST", "enrollment_status": "ENR"},
		{"id": float64(3), "course": float64(9), "person_name": "Eva", "role": "INS", "enrollment_status": "ENR"},
	}
	b.lists["/api/training/sessions/3/attendance/"] = []model.Item{
		{"id": float64(50), "participant": float64(2), "status": "AUS", "notes": ""},
	}
}

func TestService_Attendance(t *testing.T) {
	Convey("Given a session with two enrolled students", t, func() {
		b := newFakeBackend()
		roster(b)
		svc := started(b)
		defer svc.Stop()
		ctx := context.Background()

		Convey("The roster resolves the course from the session", func() {
			sheet, err := svc.Attendance(ctx, "3", "")
			So(err, ShouldBeNil)
			So(sheet.CourseID, ShouldEqual, "9")
			So(len(sheet.Rows), ShouldEqual, 2)
			So(sheet.Rows[1].Status, ShouldEqual, model.AttendanceAbsent)
		})

		Convey("Saving writes every row and reports each one", func() {
			report, err := svc.SaveAttendance(ctx, "3", "9", map[string]flows.AttendanceEdit{
				"1": {Status: model.AttendanceLate},
			})
			So(err, ShouldBeNil)
			So(report.Total, ShouldEqual, 2)
			So(report.OK(), ShouldBeTrue)
			So(report.Succeeded, ShouldResemble, []string{"1", "2"})
			So(b.count("POST", flows.AttendancePath), ShouldEqual, 1)
			So(b.count("PATCH", "/api/training/attendance/50/"), ShouldEqual, 1)
		})

		Convey("A failing row does not hide the others", func() {
			b.fail["PATCH /api/training/attendance/50/"] = &statusErr{status: 400, body: `{"status": ["Valor inválido."]}`}
			report, err := svc.SaveAttendance(ctx, "3", "9", nil)
			So(err, ShouldBeNil)
			So(report.Succeeded, ShouldResemble, []string{"1"})
			So(len(report.Failed), ShouldEqual, 1)
			So(report.Failed[0].Key, ShouldEqual, "2")
			So(report.Failed[0].Status, ShouldEqual, 400)
			So(report.Failed[0].Message, ShouldEqual, "status: Valor inválido.")
		})

		Convey("Transport failures are reported per row", func() {
			b.fail["POST "+flows.AttendancePath] = errDown
			report, _ := svc.SaveAttendance(ctx, "3", "9", nil)
			So(report.Failed[0].Message, ShouldEqual, form.MsgTransport)
		})

		Convey("A participant off the roster is rejected", func() {
			_, err := svc.SaveAttendance(ctx, "3", "9", map[string]flows.AttendanceEdit{"3": {Status: model.AttendanceLate}})
			So(errors.Is(err, flows.ErrInvalidInput), ShouldBeTrue)
		})
	})
}

func TestService_Grades(t *testing.T) {
	Convey("Given a course roster", t, func() {
		b := newFakeBackend()
		roster(b)
		svc := started(b)
		defer svc.Stop()
		ctx := context.Background()

		Convey("Valid grades are saved", func() {
			report, errs, err := svc.SaveGrades(ctx, "9", []flows.GradeInput{
				{ParticipantID: "1", Grade: "17", AcademicStatus: "APR"},
				{ParticipantID: "2", Grade: "8,5", AcademicStatus: "REP"},
			})
			So(err, ShouldBeNil)
			So(errs, ShouldBeNil)
			So(report.OK(), ShouldBeTrue)
			c, ok := b.last("PATCH", "/api/training/participants/2/")
			So(ok, ShouldBeTrue)
			So(c.Payload["grade"], ShouldEqual, 8.5)
		})

		Convey("Instructors and strangers cannot be graded", func() {
			_, errs, err := svc.SaveGrades(ctx, "9", []flows.GradeInput{{ParticipantID: "3", Grade: "10"}})
			So(err, ShouldBeNil)
			So(errs, ShouldContainKey, "3")
			So(b.count("PATCH", flows.ParticipantsPath), ShouldEqual, 0)
		})
	})
}

func TestService_Enrollments(t *testing.T) {
	Convey("Given a course with two pending requests", t, func() {
		b := newFakeBackend()
		roster(b)
		b.lists[flows.ParticipantsPath] = append(b.lists[flows.ParticipantsPath],
			model.Item{"id": float64(7), "course": float64(9), "person_name": "Rosa", "role": "EST",
				"enrollment_status": "REQ", "created_at": "2025-03-04T10:15:00Z"},
			model.Item{"id": float64(8), "course": float64(9), "person_name": "Iván", "role": "EST",
				"enrollment_status": "REQ", "created_at": "2025-03-05T08:00:00-04:00"},
		)
		svc := started(b)
		defer svc.Stop()
		ctx := context.Background()

		Convey("Only requested participants are listed", func() {
			reqs, err := svc.EnrollmentRequests(ctx, "9")
			So(err, ShouldBeNil)
			So(reqs, ShouldResemble, []flows.EnrollmentRequest{
				{ParticipantID: "7", PersonName: "Rosa", RequestedOn: "2025-03-04"},
				{ParticipantID: "8", PersonName: "Iván", RequestedOn: "2025-03-05"},
			})
		})

		Convey("Each decision is one course action", func() {
			report, errs, err := svc.DecideEnrollments(ctx, "9", map[string]flows.Decision{
				"7": flows.Approve,
				"8": flows.Reject,
			})
			So(err, ShouldBeNil)
			So(errs, ShouldBeNil)
			So(report.Succeeded, ShouldResemble, []string{"7", "8"})
			c, ok := b.last("POST", "/api/training/courses/9/approve_enrollment/")
			So(ok, ShouldBeTrue)
			So(c.Payload, ShouldResemble, map[string]any{"participant_id": int64(7)})
			So(b.count("POST", "/api/training/courses/9/reject_enrollment/"), ShouldEqual, 1)
		})

		Convey("A refused action is reported on its row only", func() {
			b.fail["POST /api/training/courses/9/approve_enrollment/"] = &statusErr{
				status: 400, body: `{"error": "El curso no tiene cupos disponibles."}`,
			}
			report, _, err := svc.DecideEnrollments(ctx, "9", map[string]flows.Decision{
				"7": flows.Approve,
				"8": flows.Reject,
			})
			So(err, ShouldBeNil)
			So(report.Succeeded, ShouldResemble, []string{"8"})
			So(report.Failed, ShouldHaveLength, 1)
			So(report.Failed[0].Key, ShouldEqual, "7")
			So(report.Failed[0].Message, ShouldEqual, "El curso no tiene cupos disponibles.")
		})

		Convey("Enrolled students and unknown decisions send nothing", func() {
			_, errs, err := svc.DecideEnrollments(ctx, "9", map[string]flows.Decision{"1": flows.Approve})
			So(err, ShouldBeNil)
			So(errs, ShouldResemble, types.FieldErrors{"1": service.MsgNotPending})

			_, errs, err = svc.DecideEnrollments(ctx, "9", map[string]flows.Decision{"7": "maybe"})
			So(err, ShouldBeNil)
			So(errs, ShouldResemble, types.FieldErrors{"7": flows.MsgDecision})
			So(b.count("POST", flows.CoursesPath), ShouldEqual, 0)
		})
	})
}

func TestService_Review(t *testing.T) {
	Convey("Given a draft review with two details", t, func() {
		b := newFakeBackend()
		b.items["/api/performance/reviews/5/"] = model.Item{
			"id": float64(5), "status": "BOR",
			"details": []any{
				map[string]any{"id": float64(11), "score": float64(0)},
				map[string]any{"id": float64(12), "score": float64(0)},
			},
		}
		svc := started(b)
		defer svc.Stop()
		ctx := context.Background()
		in := flows.ReviewInput{
			Action:   flows.ReviewSubmit,
			Feedback: "bien",
			Details: map[string]flows.DetailEdit{
				"11": {Score: 4, Comment: "a"},
				"12": {Score: 5, Comment: "b"},
			},
		}

		Convey("Submitting writes details then the header", func() {
			res, err := svc.SaveReview(ctx, "5", in)
			So(err, ShouldBeNil)
			So(res.OK(), ShouldBeTrue)
			So(res.Report.Total, ShouldEqual, 3)
			c, ok := b.last("PATCH", "/api/performance/reviews/5/")
			So(ok, ShouldBeTrue)
			So(c.Payload["status"], ShouldEqual, "ENV")
		})

		Convey("A failed detail skips the header", func() {
			b.fail["PATCH /api/performance/details/12/"] = &statusErr{status: 500}
			res, err := svc.SaveReview(ctx, "5", in)
			So(err, ShouldBeNil)
			So(res.OK(), ShouldBeFalse)
			So(res.Banner, ShouldEqual, service.MsgBulkPartial)
			So(b.count("PATCH", "/api/performance/reviews/5/"), ShouldEqual, 0)
		})

		Convey("A failed header is reported", func() {
			b.fail["PATCH /api/performance/reviews/5/"] = &statusErr{status: 400, body: `{"detail": "Periodo cerrado."}`}
			res, _ := svc.SaveReview(ctx, "5", in)
			So(res.Banner, ShouldEqual, "Periodo cerrado.")
			So(res.Report.Failed[len(res.Report.Failed)-1].Key, ShouldEqual, "review")
		})

		Convey("Invalid scores return field errors without writes", func() {
			in.Details["11"] = flows.DetailEdit{Score: 9, Comment: "x"}
			res, err := svc.SaveReview(ctx, "5", in)
			So(err, ShouldBeNil)
			So(res.Errors, ShouldContainKey, "11")
			So(b.count("PATCH", "/api/performance/"), ShouldEqual, 0)
		})

		Convey("Accepting a draft is refused", func() {
			_, err := svc.SaveReview(ctx, "5", flows.ReviewInput{Action: flows.ReviewAccept})
			So(errors.Is(err, flows.ErrTransition), ShouldBeTrue)
		})
	})
}

func TestService_Termination(t *testing.T) {
	Convey("Given an active employment", t, func() {
		b := newFakeBackend()
		b.items["/api/employment/employments/8/"] = model.Item{"id": float64(8), "hire_date": "2021-01-10"}
		svc := started(b)
		defer svc.Stop()
		ctx := context.Background()

		Convey("The form defaults to today and user deactivation", func() {
			page, err := svc.TerminationForm(ctx, "8")
			So(err, ShouldBeNil)
			So(page.Fields[0].Value, ShouldEqual, time.Now().Format("2006-01-02"))
			So(page.Fields[1].Options, ShouldResemble, flows.ExitReasons)
			So(page.Fields[3].Checked, ShouldBeTrue)
		})

		Convey("A valid submit posts the terminate action once", func() {
			raw := map[string]any{"end_date": "2024-06-30", "exit_reason": "REN", "deactivate_user": "on"}
			res, err := svc.Terminate(ctx, "8", "t-1", raw)
			So(err, ShouldBeNil)
			So(res.OK, ShouldBeTrue)
			c, _ := b.last("POST", "/api/employment/employments/8/terminate/")
			So(c.Payload["deactivate_user"], ShouldEqual, true)

			res, _ = svc.Terminate(ctx, "8", "t-1", raw)
			So(res.OK, ShouldBeFalse)
			So(res.Feedback.Banner, ShouldEqual, service.MsgAlreadySubmitted)
		})

		Convey("Backend field errors land on the form", func() {
			b.fail["POST /api/employment/employments/8/terminate/"] = &statusErr{status: 400, body: `{"end_date": ["Fecha inválida."]}`}
			res, err := svc.Terminate(ctx, "8", "t-2", map[string]any{"end_date": "2024-06-30", "exit_reason": "FIN"})
			So(err, ShouldBeNil)
			So(res.OK, ShouldBeFalse)
			So(res.Feedback.Fields["end_date"], ShouldEqual, "Fecha inválida.")
			So(res.Page.Fields[0].Error, ShouldEqual, "Fecha inválida.")
		})

		Convey("An end date before hiring is caught locally", func() {
			res, _ := svc.Terminate(ctx, "8", "", map[string]any{"end_date": "2020-01-01", "exit_reason": "FIN"})
			So(res.Feedback.Fields["end_date"], ShouldEqual, flows.MsgEndBeforeHire)
			So(b.count("POST", "/api/employment/"), ShouldEqual, 0)
		})
	})
}
