package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"
)

const maxMemory = 10 << 20

var durationType = reflect.TypeOf(time.Duration(0))

// GetBody decodes the request into T by content type. Requests without a body type
// fall back to query parameters. An empty JSON body yields the zero value.
func GetBody[T any](r *http.Request) (*T, error) {
	var d T
	header := r.Header.Get("Content-Type")
	if strings.Contains(header, ";") {
		header = strings.Split(header, ";")[0]
	}
	switch header {
	case "application/json":
		err := json.NewDecoder(r.Body).Decode(&d)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed decoding body(%s): %w", r.Header.Get("Content-Type"), err)
		}
		return &d, nil

	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("failed parsing form-encoded body: %w", err)
		}
		if err := populateFromFormValues(&d, r.Form); err != nil {
			return nil, err
		}
		return &d, nil

	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			return nil, fmt.Errorf("failed parsing multipart form data: %w", err)
		}
		if err := populateFromFormValues(&d, r.MultipartForm.Value); err != nil {
			return nil, err
		}
		return &d, nil

	default:
		if err := populateFromFormValues(&d, r.URL.Query()); err != nil {
			return nil, err
		}
		return &d, nil
	}
}

// populateFromFormValues sets struct fields named by their json tag from form or query values.
func populateFromFormValues[T any](d *T, values map[string][]string) error {
	val := reflect.ValueOf(d).Elem()
	if val.Kind() != reflect.Struct {
		return fmt.Errorf("cannot populate %s from form values", val.Type())
	}
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		if !field.CanSet() {
			continue
		}

		name := strings.Split(fieldType.Tag.Get("json"), ",")[0]
		if name == "-" {
			continue
		}
		if name == "" {
			name = fieldType.Name
		}

		v, ok := values[name]
		if !ok || len(v) == 0 {
			continue
		}
		if err := setField(field, v[0]); err != nil {
			return fmt.Errorf("invalid value for %s: %w", name, err)
		}
	}
	return nil
}

func setField(field reflect.Value, raw string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	}
	return nil
}
