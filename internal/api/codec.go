package api

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/centsible/centsible/internal/orchestrator"
)

// Callback correlation ids travel through the upstream transport as opaque
// strings attached to buttons. The wire forms are
// "confirm_delete_<txID>", "cancel_delete_<txID>" and "edit_<field>_<txID>";
// field names never contain underscores, so parsing is unambiguous.

// EncodeCallback renders a CallbackAction into its wire form.
func EncodeCallback(a orchestrator.CallbackAction) (string, error) {
	if a.TransactionID == "" {
		return "", errors.New("callback action needs a transaction id")
	}
	switch a.Action {
	case orchestrator.ActionConfirmDelete, orchestrator.ActionCancelDelete:
		return a.Action + "_" + a.TransactionID, nil
	case orchestrator.ActionEdit:
		if a.Field == "" {
			return "", errors.New("edit callback needs a field")
		}
		if strings.Contains(a.Field, "_") {
			return "", errors.Errorf("field %q cannot be encoded", a.Field)
		}
		return a.Action + "_" + a.Field + "_" + a.TransactionID, nil
	default:
		return "", errors.Errorf("unknown callback action %q", a.Action)
	}
}

// ParseCallback decodes a wire-form callback id back into a CallbackAction.
func ParseCallback(data string) (orchestrator.CallbackAction, error) {
	switch {
	case strings.HasPrefix(data, orchestrator.ActionConfirmDelete+"_"):
		id := data[len(orchestrator.ActionConfirmDelete)+1:]
		if id == "" {
			return orchestrator.CallbackAction{}, errors.New("callback carries no transaction id")
		}
		return orchestrator.CallbackAction{Action: orchestrator.ActionConfirmDelete, TransactionID: id}, nil

	case strings.HasPrefix(data, orchestrator.ActionCancelDelete+"_"):
		id := data[len(orchestrator.ActionCancelDelete)+1:]
		if id == "" {
			return orchestrator.CallbackAction{}, errors.New("callback carries no transaction id")
		}
		return orchestrator.CallbackAction{Action: orchestrator.ActionCancelDelete, TransactionID: id}, nil

	case strings.HasPrefix(data, orchestrator.ActionEdit+"_"):
		rest := data[len(orchestrator.ActionEdit)+1:]
		parts := strings.SplitN(rest, "_", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return orchestrator.CallbackAction{}, errors.Errorf("malformed edit callback %q", data)
		}
		return orchestrator.CallbackAction{Action: orchestrator.ActionEdit, Field: parts[0], TransactionID: parts[1]}, nil

	default:
		return orchestrator.CallbackAction{}, errors.Errorf("unrecognized callback data %q", data)
	}
}
