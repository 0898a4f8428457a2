package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/matchgrid/matchgrid/services"
)

type jsonResponse map[string]interface{}

var validate = validator.New()

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case err.Error() == "http: request body too large":
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err)
		default:
			return err
		}
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}
	return nil
}

// readValidatedJSON decodes and runs struct-tag validation in one step.
func readValidatedJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if err := readJSON(w, r, dst); err != nil {
		return err
	}
	if err := validate.Struct(dst); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
			fe := fieldErrors[0]
			return fmt.Errorf("field %s failed validation rule %q", fe.Field(), fe.Tag())
		}
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func idParam(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid %s parameter %q", name, raw)
	}
	return id, nil
}

func parsePositiveInt(raw string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("expected a positive integer, got %q", raw)
	}
	return v, nil
}

func errorResponse(w http.ResponseWriter, status int, message interface{}) {
	if err := writeJSON(w, status, jsonResponse{"error": message}, nil); err != nil {
		slog.Error("failed to write error response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func badRequestResponse(w http.ResponseWriter, err error) {
	errorResponse(w, http.StatusBadRequest, err.Error())
}

func serverErrorResponse(w http.ResponseWriter, err error) {
	slog.Error("internal server error", slog.Any("error", err))
	errorResponse(w, http.StatusInternalServerError,
		"the server encountered a problem and could not process your request")
}

// serviceErrorResponse maps the service error taxonomy onto HTTP statuses:
// not-founds to 404, conflicts to 409, validation to 422, everything else 500.
func serviceErrorResponse(w http.ResponseWriter, err error) {
	switch {
	case isNotFound(err):
		errorResponse(w, http.StatusNotFound, err.Error())
	case isConflict(err):
		errorResponse(w, http.StatusConflict, err.Error())
	case isValidation(err):
		errorResponse(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, services.ErrForbiddenOperation):
		errorResponse(w, http.StatusForbidden, err.Error())
	default:
		serverErrorResponse(w, err)
	}
}

func isNotFound(err error) bool {
	for _, target := range []error{
		services.ErrNotFound,
		services.ErrEventNotFound,
		services.ErrDivisionNotFound,
		services.ErrTeamNotFound,
		services.ErrSportNotFound,
		services.ErrProfileNotFound,
		services.ErrFieldNotFound,
		services.ErrMatchNotFound,
		services.ErrCandidateNotFound,
		services.ErrRentalNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isConflict(err error) bool {
	for _, target := range []error{
		services.ErrEventNameConflict,
		services.ErrTeamNameConflict,
		services.ErrBookingConflict,
		services.ErrConfirmationConflict,
		services.ErrBracketAlreadyExists,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isValidation(err error) bool {
	for _, target := range []error{
		services.ErrValidationFailed,
		services.ErrEventNameRequired,
		services.ErrEventDatesRequired,
		services.ErrEventInvalidRegDate,
		services.ErrEventInvalidDateRange,
		services.ErrEventInvalidStatus,
		services.ErrEventStatusTransition,
		services.ErrEventKindImmutable,
		services.ErrMatchLockedEdit,
		services.ErrMatchDeleteLocked,
		services.ErrMatchDeleteReferenced,
		services.ErrClientIDRequired,
		services.ErrClientIDDuplicate,
		services.ErrStandingsNotConfirmed,
		services.ErrPlayoffTargetsMissing,
		services.ErrPlayoffCapacityInvalid,
		services.ErrOverrideTeamInvalid,
		services.ErrBracketWrongKind,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
