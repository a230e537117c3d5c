package condition

import (
	"context"
	"fmt"
	"reflect"

	"github.com/intakehq/autoflow/entity"
	"github.com/intakehq/autoflow/model"
	"github.com/intakehq/autoflow/util"
)

var _ Condition = new(metadataMatch)

// metadataMatch looks up a jsonpath in the execution context. Without a configured value
// it is true when the path resolves to a non-empty value.
type metadataMatch struct {
	baseCondition
	path     string
	value    any
	hasValue bool
}

func newMetadataMatch(base baseCondition) *metadataMatch {
	path, _ := util.GetString(base.config, "path")
	value, hasValue := base.config["value"]
	return &metadataMatch{baseCondition: base, path: path, value: value, hasValue: hasValue}
}

func (c *metadataMatch) Validate() error {
	if c.path == "" {
		return configError(c.id, "path can not be empty")
	}
	if err := util.CompilePath(c.path); err != nil {
		return configError(c.id, "path should be a valid jsonpath expression: %v", err)
	}
	return nil
}

func (c *metadataMatch) Evaluate(ctx context.Context, execCtx *model.ExecutionContext, reader entity.Reader) (bool, error) {
	if c.path == "" || execCtx == nil {
		return false, nil
	}
	found, err := util.Lookup(execCtx.Data(), c.path)
	if err != nil || found == nil {
		return false, nil
	}
	if !c.hasValue {
		return !isEmpty(found), nil
	}
	if reflect.DeepEqual(found, c.value) {
		return true, nil
	}
	return fmt.Sprintf("%v", found) == fmt.Sprintf("%v", c.value), nil
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case string:
		return val == ""
	case bool:
		return !val
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	}
	return false
}
