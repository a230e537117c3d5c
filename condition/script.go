package condition

import (
	"context"
	"fmt"
	"time"

	"github.com/dop251/goja"
	"github.com/intakehq/autoflow/entity"
	"github.com/intakehq/autoflow/model"
	"github.com/intakehq/autoflow/util"
)

const defaultScriptTimeout = 100 * time.Millisecond

var _ Condition = new(script)

// script evaluates a JavaScript expression with $ bound to the execution context.
// The result is converted with JavaScript truthiness.
type script struct {
	baseCondition
	expression string
	timeout    time.Duration
}

func newScript(base baseCondition) *script {
	expression, _ := util.GetString(base.config, "expression")
	timeout := defaultScriptTimeout
	if ms, ok := util.GetInt(base.config, "timeoutMs"); ok && ms > 0 {
		timeout = time.Duration(ms) * time.Millisecond
	}
	return &script{baseCondition: base, expression: expression, timeout: timeout}
}

func (c *script) Validate() error {
	if len(c.expression) == 0 {
		return configError(c.id, "expression can not be empty")
	}
	if _, err := goja.Compile(c.id, c.expression, true); err != nil {
		return configError(c.id, "expression does not compile: %v", err)
	}
	return nil
}

// Evaluate returns an error only when the script throws or runs past its timeout.
func (c *script) Evaluate(ctx context.Context, execCtx *model.ExecutionContext, reader entity.Reader) (bool, error) {
	if len(c.expression) == 0 || execCtx == nil {
		return false, nil
	}
	data, err := snapshotData(execCtx)
	if err != nil {
		return false, fmt.Errorf("error preparing javascript %w", err)
	}
	vm := goja.New()
	if err := vm.Set("$", data); err != nil {
		return false, fmt.Errorf("error preparing javascript %w", err)
	}
	timer := time.AfterFunc(c.timeout, func() {
		vm.Interrupt("timeout")
	})
	defer timer.Stop()
	stop := context.AfterFunc(ctx, func() {
		vm.Interrupt(ctx.Err())
	})
	defer stop()

	val, err := vm.RunString(c.expression)
	if err != nil {
		return false, fmt.Errorf("error executing javascript %w", err)
	}
	return val.ToBoolean(), nil
}

// snapshotData copies the execution context so a script can not write through to the
// maps shared with the rest of the run.
func snapshotData(execCtx *model.ExecutionContext) (map[string]any, error) {
	encDec := util.NewJsonEncoderDecoder[map[string]any]()
	raw, err := encDec.Encode(execCtx.Data())
	if err != nil {
		return nil, err
	}
	data, err := encDec.Decode(raw)
	if err != nil {
		return nil, err
	}
	return *data, nil
}
