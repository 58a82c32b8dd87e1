package apclient

import (
	"fmt"
	"reflect"

	"github.com/NomadCrew/ap-workbench/types"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// validatePayload checks a decoded response against its struct tags. Slices
// are validated element by element, and dossiers get extra enum checks.
func validatePayload(out interface{}) error {
	v := reflect.ValueOf(out)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return fmt.Errorf("response body is null")
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Slice:
		if v.IsNil() {
			return fmt.Errorf("expected array, got null")
		}
		for i := 0; i < v.Len(); i++ {
			if err := validateStruct(v.Index(i)); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		return nil
	case reflect.Struct:
		if err := validateStruct(v); err != nil {
			return err
		}
		if d, ok := v.Addr().Interface().(*types.ComparisonDossier); ok {
			return checkDossier(d)
		}
		return nil
	default:
		return nil
	}
}

func validateStruct(v reflect.Value) error {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return fmt.Errorf("unexpected null element")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	if err := validate.Struct(v.Interface()); err != nil {
		return describe(err)
	}
	return nil
}

// describe flattens validator errors into a single readable line.
func describe(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err
	}
	first := verrs[0]
	msg := fmt.Sprintf("%s failed %q", first.Namespace(), first.Tag())
	if first.Param() != "" {
		msg += fmt.Sprintf(" (%s)", first.Param())
	}
	if len(verrs) > 1 {
		msg += fmt.Sprintf(" and %d more", len(verrs)-1)
	}
	return fmt.Errorf("%s", msg)
}

// checkDossier covers the enum the struct tags cannot express. po_db_id on a
// comparison PO line is optional; such lines resolve by PO number.
func checkDossier(d *types.ComparisonDossier) error {
	if !d.InvoiceStatus.IsValid() {
		return fmt.Errorf("invoice_status: unknown value %q", d.InvoiceStatus)
	}
	return nil
}
