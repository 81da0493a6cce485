package core

// validation.go applies an entity's validator table to reconciled records.
//
// Each matched column is checked in mapping order:
//  1. A registered validator runs first. If it fails, its message is the
//     only one reported for that field.
//  2. Otherwise a required field with a blank value gets "<Name> is required".
//  3. Otherwise the trimmed value is kept under the field key.
//
// A row with any message becomes a RowError carrying all of them. There are
// no partial rows: a record is either fully validated or rejected.

import (
	"fmt"
	"strings"
)

// ValidateRow checks one record. Exactly one of the results is non-nil.
// The function is pure; it only reads its arguments.
func ValidateRow(rec Record, mapping ColumnMapping, validators Validators) (*ValidatedRow, *RowError) {
	var messages []string
	data := make(map[string]string, len(mapping.Matched))

	for _, col := range mapping.Matched {
		raw := rec.Value(col.Header)

		if validate, ok := validators[col.FieldKey]; ok && validate != nil {
			if err := validate(raw); err != nil {
				messages = append(messages, fieldMessage(col.CanonicalName, err))
				continue
			}
		}

		value := strings.TrimSpace(raw)
		if col.Required && value == "" {
			messages = append(messages, fmt.Sprintf("%s is required", col.CanonicalName))
			continue
		}

		data[col.FieldKey] = value
	}

	if len(messages) > 0 {
		return nil, &RowError{RowIndex: rec.Index, Messages: messages}
	}
	return &ValidatedRow{RowIndex: rec.Index, Data: data}, nil
}

// fieldMessage prefixes a validator's message with the column name unless
// the validator already mentions it.
func fieldMessage(name string, err error) string {
	msg := err.Error()
	if name == "" || strings.Contains(msg, name) {
		return msg
	}
	return name + ": " + msg
}

// RowValidator validates records against a fixed mapping and validator table.
type RowValidator struct {
	mapping     ColumnMapping
	validators  Validators
	extraFields ExtraFieldPolicy
	headerWidth int
}

// NewRowValidator creates a validator for the given mapping.
// headerWidth is the number of header columns, used to report overflow
// when extra is ExtraFieldsReject.
func NewRowValidator(mapping ColumnMapping, validators Validators, extra ExtraFieldPolicy, headerWidth int) *RowValidator {
	return &RowValidator{
		mapping:     mapping,
		validators:  validators,
		extraFields: extra,
		headerWidth: headerWidth,
	}
}

// Validate checks a single record, applying the extra-field policy on top
// of ValidateRow.
func (v *RowValidator) Validate(rec Record) (*ValidatedRow, *RowError) {
	row, rowErr := ValidateRow(rec, v.mapping, v.validators)

	if v.extraFields == ExtraFieldsReject && len(rec.Extra) > 0 {
		msg := fmt.Sprintf("row has %d values but header has %d columns",
			v.headerWidth+len(rec.Extra), v.headerWidth)
		if rowErr == nil {
			return nil, &RowError{RowIndex: rec.Index, Messages: []string{msg}}
		}
		rowErr.Messages = append(rowErr.Messages, msg)
	}

	return row, rowErr
}

// ValidateRecords partitions records into valid rows and row errors.
// Every record lands in exactly one of the two slices, in input order.
func (v *RowValidator) ValidateRecords(records []Record) ([]ValidatedRow, []RowError) {
	valid := make([]ValidatedRow, 0, len(records))
	var rowErrors []RowError

	for _, rec := range records {
		row, rowErr := v.Validate(rec)
		if rowErr != nil {
			rowErrors = append(rowErrors, *rowErr)
			continue
		}
		valid = append(valid, *row)
	}

	return valid, rowErrors
}

func joinMessages(messages []string) string {
	return strings.Join(messages, "; ")
}
