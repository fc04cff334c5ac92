package profiles

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const (
	SearchPath   = "/profiles/search"
	DefaultLimit = 20
	// The search service rejects anything outside [1, 100].
	maxLimit = 100
)

var ErrEmptyQuery = errors.New("search query is empty")

type SearchParams struct {
	Query string `yaml:"query"`
	Limit int    `yaml:"limit"`
	// param is a custom tag for reflect. Repeated values are sent as repeated keys.
	URLs             []string `param:"urls"`
	InitializeSchema bool     `yaml:"initialize_schema"`
}

// Search runs a semantic search and returns the normalized profiles in the
// order the service ranked them.
func (c *Client) Search(ctx context.Context, params *SearchParams) (*Profiles, error) {
	if params == nil || strings.TrimSpace(params.Query) == "" {
		return nil, ErrEmptyQuery
	}

	p := *params
	p.Query = strings.TrimSpace(p.Query)
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}

	var raw map[string]any
	if err := c.getJSON(ctx, c.Endpoint+SearchPath, buildParams(&p), &raw); err != nil {
		return nil, fmt.Errorf("search profiles: %w", err)
	}

	result := NormalizeResponse(raw)
	c.logger.Debug("search finished", zap.Int("count", result.Len()))

	return result, nil
}

func buildParams(params *SearchParams) url.Values {
	q := url.Values{}
	value := reflect.ValueOf(params).Elem()
	for _, field := range reflect.VisibleFields(value.Type()) {
		// Our custom tag is used here.
		key := field.Tag.Get("param")
		if key == "" {
			// Failover to the yaml tag if our tag does not exist.
			key = field.Tag.Get("yaml")
		}
		if key == "" {
			continue
		}

		fieldValue := value.FieldByIndex(field.Index)
		switch field.Type.Kind() {
		case reflect.Slice:
			if values, ok := fieldValue.Interface().([]string); ok {
				for _, v := range values {
					if v = strings.TrimSpace(v); v != "" {
						q.Add(key, v)
					}
				}
			}
		case reflect.Bool:
			if fieldValue.Bool() {
				q.Set(key, "true")
			}
		case reflect.Int:
			if fieldValue.Int() != 0 {
				q.Set(key, strconv.FormatInt(fieldValue.Int(), 10))
			}
		default:
			if v := fmt.Sprintf("%v", fieldValue.Interface()); v != "" {
				q.Set(key, v)
			}
		}
	}

	return q
}
