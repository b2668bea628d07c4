package form_test

import (
	"errors"
	"net/url"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/hrdesk/internal/domain/form"
	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/internal/domain/types"
)

func ptr(f float64) *float64 { return &f }

func personSchema() *form.Schema {
	s, err := form.NewSchema([]form.Descriptor{
		{Name: "name", Label: "Nombre", Type: form.KindText, Required: true, NoDigits: true},
		{Name: "email", Label: "Correo", Type: form.KindEmail},
		{Name: "age", Label: "Edad", Type: form.KindNumber, Min: ptr(18), Max: ptr(99)},
		{Name: "birth_date", Label: "Nacimiento", Type: form.KindDate},
		{Name: "is_active", Label: "Activo", Type: form.KindBoolean},
		{Name: "country", Label: "País", Type: form.KindSelect, Required: true, OptionsEndpoint: "/api/core/countries/"},
		{Name: "state", Label: "Provincia", Type: form.KindSelect, OptionsEndpoint: "/api/core/states/", DependsOn: "country"},
		{Name: "tags", Label: "Etiquetas", Type: form.KindMultiSelect, Required: true, OptionsEndpoint: "/api/core/tags/"},
		{Name: "gender", Label: "Género", Type: form.KindSelect, Choices: []types.Option{{Value: "M", Label: "Masculino"}, {Value: "F", Label: "Femenino"}}},
		{Name: "notes", Label: "Notas", Type: form.KindTextarea},
		{Name: "photo", Label: "Foto", Type: form.KindFile},
	})
	So(err, ShouldBeNil)
	return s
}

func TestNewSchema(t *testing.T) {
	Convey("Given descriptors", t, func() {
		Convey("A valid list indexes fields and dependency edges", func() {
			s := personSchema()
			So(len(s.Fields()), ShouldEqual, 11)
			So(s.Dependents("country"), ShouldResemble, []string{"state"})
			So(s.Dependents("state"), ShouldBeEmpty)
			f, ok := s.Field("state")
			So(ok, ShouldBeTrue)
			So(f.FilterKey(), ShouldEqual, "country")
			So(f.LabelKey(), ShouldEqual, "name")
			So(f.ValueKey(), ShouldEqual, "id")
			So(s.HasFile(), ShouldBeTrue)
		})

		Convey("Invalid lists are rejected", func() {
			cases := [][]form.Descriptor{
				{{Name: ""}},
				{{Name: "a", Type: "color"}},
				{{Name: "a"}, {Name: "a"}},
				{{Name: "a", Type: form.KindSelect}},
				{{Name: "a", Type: form.KindSelect, OptionsEndpoint: "/x/", DependsOn: "missing"}},
				{{Name: "a", Type: form.KindSelect, OptionsEndpoint: "/x/", DependsOn: "a"}},
			}
			for _, c := range cases {
				_, err := form.NewSchema(c)
				So(errors.Is(err, form.ErrInvalidSchema), ShouldBeTrue)
			}
		})

		Convey("Type and label default", func() {
			s, err := form.NewSchema([]form.Descriptor{{Name: "code"}})
			So(err, ShouldBeNil)
			f, _ := s.Field("code")
			So(f.Type, ShouldEqual, form.KindText)
			So(f.Label, ShouldEqual, "code")
			So(f.InputType(), ShouldEqual, "text")
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given the person schema", t, func() {
		s := personSchema()

		Convey("Required fields left empty block the submit with a message", func() {
			_, errs := s.Validate(map[string]any{"name": "  ", "country": ""}, form.Create)
			So(errs["name"], ShouldEqual, form.MsgRequired)
			So(errs["country"], ShouldEqual, form.MsgRequired)
			So(errs["tags"], ShouldEqual, form.MsgSelectOne)
		})

		Convey("Blank numbers and selects coerce to nil", func() {
			for _, blank := range []any{"", nil} {
				payload, _ := s.Validate(map[string]any{"age": blank, "state": blank}, form.Create)
				So(payload["age"], ShouldBeNil)
				So(payload["state"], ShouldBeNil)
			}
			payload, _ := s.Validate(map[string]any{}, form.Create)
			So(payload["age"], ShouldBeNil)
			So(payload["state"], ShouldBeNil)
		})

		Convey("A valid submission produces a typed payload", func() {
			payload, errs := s.Validate(map[string]any{
				"name":       "Ana",
				"email":      "ana@example.com",
				"age":        "30",
				"birth_date": "1994-05-01",
				"is_active":  "on",
				"country":    "7",
				"state":      "12",
				"tags":       []string{"1", "2"},
				"gender":     "F",
				"notes":      "",
			}, form.Create)
			So(errs.Empty(), ShouldBeTrue)
			So(payload["age"], ShouldEqual, 30.0)
			So(payload["is_active"], ShouldEqual, true)
			So(payload["country"], ShouldEqual, int64(7))
			So(payload["tags"], ShouldResemble, []any{int64(1), int64(2)})
			So(payload["gender"], ShouldEqual, "F")
			So(payload["notes"], ShouldEqual, "")
			So(payload["birth_date"], ShouldEqual, "1994-05-01")
			_, hasPhoto := payload["photo"]
			So(hasPhoto, ShouldBeFalse)
		})

		Convey("Optional blanks keep their neutral values", func() {
			payload, _ := s.Validate(map[string]any{"name": "Ana", "country": "1", "tags": []string{"3"}}, form.Create)
			So(payload["email"], ShouldEqual, "")
			So(payload["birth_date"], ShouldBeNil)
			So(payload["is_active"], ShouldEqual, false)
			So(payload["tags"], ShouldResemble, []any{int64(3)})
		})

		Convey("Bad values get their messages", func() {
			_, errs := s.Validate(map[string]any{
				"name":       "Ana 2",
				"email":      "not-an-email",
				"age":        "abc",
				"birth_date": "01/05/1994",
				"gender":     "X",
			}, form.Create)
			So(errs["name"], ShouldEqual, form.MsgNoDigits)
			So(errs["email"], ShouldEqual, form.MsgEmail)
			So(errs["age"], ShouldEqual, form.MsgNumber)
			So(errs["birth_date"], ShouldEqual, form.MsgDate)
			So(errs["gender"], ShouldEqual, form.MsgChoice)
		})

		Convey("Numbers outside the bounds are rejected", func() {
			_, errs := s.Validate(map[string]any{"age": "17"}, form.Create)
			So(errs["age"], ShouldEqual, "Debe ser mayor o igual a 18.")
			_, errs = s.Validate(map[string]any{"age": 100.0}, form.Create)
			So(errs["age"], ShouldEqual, "Debe ser menor o igual a 99.")
		})

		Convey("A non-numeric remote select coerces to nil", func() {
			payload, errs := s.Validate(map[string]any{"state": "abc"}, form.Create)
			So(payload["state"], ShouldBeNil)
			So(errs["state"], ShouldBeEmpty)
		})

		Convey("Files are carried when uploaded", func() {
			f := &types.File{Filename: "a.png", Data: []byte("x")}
			payload, _ := s.Validate(map[string]any{"photo": f}, form.Update)
			So(payload["photo"], ShouldEqual, f)
			So(f.Field, ShouldEqual, "photo")
		})
	})

	Convey("A required file is only enforced on create", t, func() {
		s, err := form.NewSchema([]form.Descriptor{{Name: "doc", Type: form.KindFile, Required: true}})
		So(err, ShouldBeNil)
		_, errs := s.Validate(map[string]any{}, form.Create)
		So(errs["doc"], ShouldEqual, form.MsgRequired)
		_, errs = s.Validate(map[string]any{}, form.Update)
		So(errs.Empty(), ShouldBeTrue)
	})
}

func TestFromFormAndPrefill(t *testing.T) {
	Convey("Given the person schema", t, func() {
		s := personSchema()

		Convey("Form values map to raw values per kind", func() {
			raw := s.FromForm(url.Values{
				"name": {"Ana"},
				"tags": {"1", "4"},
				"junk": {"x"},
			}, map[string]*types.File{"photo": {Filename: "p.jpg"}})
			So(raw["name"], ShouldEqual, "Ana")
			So(raw["tags"], ShouldResemble, []string{"1", "4"})
			So(raw["photo"], ShouldNotBeNil)
			_, hasJunk := raw["junk"]
			So(hasJunk, ShouldBeFalse)
			So(raw["is_active"], ShouldEqual, false)
		})

		Convey("A ticked checkbox and an empty multi-select", func() {
			raw := s.FromForm(url.Values{"name": {"Ana"}, "is_active": {"on"}}, nil)
			So(raw["is_active"], ShouldEqual, "on")
			So(raw["tags"], ShouldResemble, []string{})
		})

		Convey("Submitted values are laid over a stored record", func() {
			base := s.Prefill(model.Item{
				"name":      "Ana",
				"age":       float64(30),
				"is_active": true,
				"country":   map[string]any{"id": float64(7)},
				"tags":      []any{float64(2)},
				"photo":     "https://cdn/p.jpg",
			})
			raw := s.Overlay(base, map[string]any{"age": "31"})
			So(raw["age"], ShouldEqual, "31")
			So(raw["name"], ShouldEqual, "Ana")
			So(raw["country"], ShouldEqual, "7")
			_, hasPhoto := raw["photo"]
			So(hasPhoto, ShouldBeFalse)

			payload, errs := s.Validate(raw, form.Update)
			So(errs.Empty(), ShouldBeTrue)
			So(payload["is_active"], ShouldEqual, true)
			So(payload["country"], ShouldEqual, int64(7))
			So(payload["tags"], ShouldResemble, []any{int64(2)})
			_, hasPhoto = payload["photo"]
			So(hasPhoto, ShouldBeFalse)
		})

		Convey("A backend record prefills the form", func() {
			values := s.Prefill(model.Item{
				"id":         float64(3),
				"name":       "Ana",
				"age":        float64(30),
				"birth_date": "1994-05-01T00:00:00Z",
				"is_active":  true,
				"country":    map[string]any{"id": float64(7), "name": "Ecuador"},
				"tags":       []any{float64(1), map[string]any{"id": float64(2)}},
			})
			So(values["name"], ShouldEqual, "Ana")
			So(values["age"], ShouldEqual, "30")
			So(values["birth_date"], ShouldEqual, "1994-05-01")
			So(values["is_active"], ShouldEqual, true)
			So(values["country"], ShouldEqual, "7")
			So(values["tags"], ShouldResemble, []string{"1", "2"})
			So(s.DependencyValue(mustField(s, "state"), values), ShouldEqual, "7")
		})

		Convey("A new record uses default values", func() {
			s2, err := form.NewSchema([]form.Descriptor{
				{Name: "is_active", Type: form.KindBoolean, DefaultValue: true},
				{Name: "code", DefaultValue: "X"},
			})
			So(err, ShouldBeNil)
			values := s2.Prefill(nil)
			So(values["is_active"], ShouldEqual, true)
			So(values["code"], ShouldEqual, "X")
		})

		Convey("Views carry values, errors and edges", func() {
			views := s.Views(map[string]any{"name": "Ana", "tags": []string{"2"}, "is_active": true},
				types.FieldErrors{"name": "ya existe"})
			So(views[0].Value, ShouldEqual, "Ana")
			So(views[0].Error, ShouldEqual, "ya existe")
			So(views[4].Checked, ShouldBeTrue)
			So(views[5].Dependents, ShouldResemble, []string{"state"})
			So(views[7].Selected("2"), ShouldBeTrue)
			So(views[7].Selected("3"), ShouldBeFalse)
		})
	})
}

func mustField(s *form.Schema, name string) form.Descriptor {
	f, ok := s.Field(name)
	So(ok, ShouldBeTrue)
	return f
}

func TestMapServerErrors(t *testing.T) {
	Convey("Given a schema with a name field", t, func() {
		s, err := form.NewSchema([]form.Descriptor{{Name: "name", Label: "Nombre", Required: true}})
		So(err, ShouldBeNil)

		Convey("A field key gets the first message", func() {
			fb := form.MapServerErrors(400, []byte(`{"name": ["ya existe", "otro"]}`), s)
			So(fb.Fields["name"], ShouldEqual, "ya existe")
			So(fb.Banner, ShouldBeEmpty)
		})

		Convey("Unmatched keys go to the banner", func() {
			fb := form.MapServerErrors(400, []byte(`{"code": ["inválido", "corto"], "detail": "No permitido", "non_field_errors": ["a", "b"]}`), s)
			So(fb.Fields.Empty(), ShouldBeTrue)
			So(fb.Banner, ShouldEqual, "a, b\nNo permitido\ncode: inválido, corto")
		})

		Convey("An error key is shown verbatim", func() {
			fb := form.MapServerErrors(403, []byte(`{"error": "No autorizado."}`), s)
			So(fb.Banner, ShouldEqual, "No autorizado.")
		})

		Convey("Unique-set violations collapse to the duplicate banner", func() {
			fb := form.MapServerErrors(400, []byte(`{"non_field_errors": ["The fields person, type must make a unique set."]}`), s)
			So(fb.Banner, ShouldEqual, form.MsgDuplicate)
			So(fb.Duplicate, ShouldBeTrue)
			fb = form.MapServerErrors(400, []byte(`{"non_field_errors": ["Los campos deben formar un conjunto único."]}`), s)
			So(fb.Duplicate, ShouldBeTrue)
		})

		Convey("Non-4xx and non-object bodies give the server banner", func() {
			So(form.MapServerErrors(500, []byte(`{"name": ["x"]}`), s).Banner, ShouldEqual, "Ocurrió un problema de conexión o del servidor (500).")
			So(form.MapServerErrors(400, []byte(`["x"]`), s).Banner, ShouldEqual, "Ocurrió un problema de conexión o del servidor (400).")
			So(form.MapServerErrors(404, []byte(`<html>`), s).Banner, ShouldEqual, "Ocurrió un problema de conexión o del servidor (404).")
			So(form.MapServerErrors(400, []byte(`{}`), s).Banner, ShouldEqual, "Ocurrió un problema de conexión o del servidor (400).")
			So(form.MsgServer(0), ShouldEqual, "Ocurrió un problema de conexión o del servidor (Desconocido).")
		})

		Convey("Transport failures have their own banner", func() {
			So(form.TransportFailure().Banner, ShouldEqual, form.MsgTransport)
		})
	})
}
