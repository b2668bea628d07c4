package flows

import (
	"sync"
	"time"

	"github.com/okian/hrdesk/internal/domain/form"
	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/internal/domain/types"
)

// ExitReasons are the causes an employment may end with.
var ExitReasons = []types.Option{ //nolint:gochecknoglobals // enumeration
	{Value: "REN", Label: "Renuncia Voluntaria"},
	{Value: "DES", Label: "Despido / Cese"},
	{Value: "FIN", Label: "Fin de Contrato"},
	{Value: "JUB", Label: "Jubilación"},
	{Value: "FAL", Label: "Fallecimiento"},
	{Value: "OTR", Label: "Otro"},
}

// MsgEndBeforeHire rejects an end date earlier than the hire date.
const MsgEndBeforeHire = "La fecha de cese no puede ser anterior a la fecha de ingreso."

const dateLayout = "2006-01-02"

var (
	terminationOnce   sync.Once
	terminationSchema *form.Schema
)

// TerminationSchema is the offboarding form.
func TerminationSchema() *form.Schema {
	terminationOnce.Do(func() {
		s, err := form.NewSchema([]form.Descriptor{
			{Name: "end_date", Label: "Fecha de Cese", Type: form.KindDate, Required: true},
			{Name: "exit_reason", Label: "Motivo Principal", Type: form.KindSelect, Required: true, Choices: ExitReasons},
			{Name: "exit_notes", Label: "Observaciones / Carta de Renuncia", Type: form.KindTextarea},
			{Name: "deactivate_user", Label: "Desactivar acceso al sistema", Type: form.KindBoolean, DefaultValue: true},
		})
		if err != nil {
			panic(err)
		}
		terminationSchema = s
	})
	return terminationSchema
}

// TerminationDefaults prefills the form for a new offboarding.
func TerminationDefaults(today time.Time) map[string]any {
	values := TerminationSchema().Prefill(nil)
	values["end_date"] = today.Format(dateLayout)
	return values
}

// PlanTermination validates the offboarding form of an employment and
// returns the terminate action.
func PlanTermination(employment model.Item, raw map[string]any) (model.Mutation, types.FieldErrors) {
	payload, errs := TerminationSchema().Validate(raw, form.Create)
	if errs == nil {
		errs = types.FieldErrors{}
	}
	if end, ok := payload["end_date"].(string); ok && errs["end_date"] == "" {
		if hire := str(employment, "hire_date"); len(hire) >= len(dateLayout) {
			// ISO dates compare lexically.
			if end < hire[:len(dateLayout)] {
				errs["end_date"] = MsgEndBeforeHire
			}
		}
	}
	if !errs.Empty() {
		return model.Mutation{}, errs
	}
	id := employment.ID()
	return model.Mutation{
		Key:     id,
		Method:  "POST",
		Path:    EmploymentsPath + id + "/terminate/",
		Payload: payload,
	}, nil
}
