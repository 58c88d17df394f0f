package feemanager

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"sync"

	"github.com/arkade-os/bridged/internal/core/ports"
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/shopspring/decimal"
)

// DefaultProgram charges the protocol fee rate on the transferred amount.
const DefaultProgram = "amount * double(feeBps) / 10000.0"

const (
	AmountVariableName      = "amount"
	FeeBpsVariableName      = "feeBps"
	UrgencyVariableName     = "urgency"
	SourceVariableName      = "source"
	DestinationVariableName = "destination"
	ProtocolVariableName    = "protocol"
)

var protocolFeeEnv *cel.Env

// clamp(value, min, max) returns the value clamped between min and max
var clampFunction = cel.Function("clamp",
	cel.Overload("clamp_double",
		[]*cel.Type{cel.DoubleType, cel.DoubleType, cel.DoubleType},
		cel.DoubleType,
		cel.FunctionBinding(func(args ...ref.Val) ref.Val {
			if len(args) != 3 {
				return types.NewErr("clamp expects 3 arguments")
			}
			values := make([]float64, 0, 3)
			for _, arg := range args {
				v, err := arg.ConvertToNative(reflect.TypeOf(float64(0)))
				if err != nil {
					return types.NewErr("%s", err.Error())
				}
				values = append(values, v.(float64))
			}
			return types.Double(math.Min(math.Max(values[0], values[1]), values[2]))
		}),
	),
)

func init() {
	var err error
	protocolFeeEnv, err = cel.NewEnv(
		cel.VariableWithDoc(
			AmountVariableName, cel.DoubleType, "Transferred amount in the asset smallest unit",
		),
		cel.VariableWithDoc(FeeBpsVariableName, cel.IntType, "Protocol fee rate in basis points"),
		cel.VariableWithDoc(
			UrgencyVariableName, cel.StringType, "Either 'economy', 'standard' or 'fast'",
		),
		cel.VariableWithDoc(SourceVariableName, cel.StringType, "Source network id"),
		cel.VariableWithDoc(DestinationVariableName, cel.StringType, "Destination network id"),
		cel.VariableWithDoc(ProtocolVariableName, cel.StringType, "Bridge protocol name"),
		clampFunction,
	)
	if err != nil {
		panic(err)
	}
}

type celFeeManager struct {
	lock    *sync.RWMutex
	text    string
	program cel.Program
}

// NewFeeManager evaluates the given CEL program to compute protocol fees, or DefaultProgram if
// empty. The program must evaluate to a double.
func NewFeeManager(program string) (ports.FeeManager, error) {
	if program == "" {
		program = DefaultProgram
	}
	prg, err := parse(program)
	if err != nil {
		return nil, fmt.Errorf("invalid protocol fee program: %w", err)
	}
	return &celFeeManager{
		lock:    &sync.RWMutex{},
		text:    program,
		program: prg,
	}, nil
}

func (m *celFeeManager) ProtocolFee(
	_ context.Context, input ports.ProtocolFeeInput,
) (decimal.Decimal, error) {
	m.lock.RLock()
	program := m.program
	m.lock.RUnlock()

	result, _, err := program.Eval(map[string]any{
		AmountVariableName:      float64(input.Amount),
		FeeBpsVariableName:      int64(input.FeeBps),
		UrgencyVariableName:     input.Urgency.String(),
		SourceVariableName:      input.Source,
		DestinationVariableName: input.Destination,
		ProtocolVariableName:    input.Protocol,
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to evaluate protocol fee program: %w", err)
	}

	native, err := result.ConvertToNative(reflect.TypeOf(float64(0)))
	if err != nil {
		return decimal.Zero, err
	}
	fee := native.(float64)
	if math.IsNaN(fee) || math.IsInf(fee, 0) || fee < 0 {
		return decimal.Zero, fmt.Errorf("invalid protocol fee %v", fee)
	}
	return decimal.NewFromFloat(fee), nil
}

func (m *celFeeManager) GetProgram(_ context.Context) string {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.text
}

func (m *celFeeManager) UpdateProgram(_ context.Context, program string) error {
	prg, err := parse(program)
	if err != nil {
		return fmt.Errorf("invalid protocol fee program: %w", err)
	}

	m.lock.Lock()
	defer m.lock.Unlock()
	m.text = program
	m.program = prg
	return nil
}

func parse(txt string) (cel.Program, error) {
	ast, issues := protocolFeeEnv.Compile(txt)
	if issues.Err() != nil {
		return nil, issues.Err()
	}

	if ast.OutputType() != cel.DoubleType {
		return nil, fmt.Errorf("expected return type double, got %v", ast.OutputType())
	}

	return protocolFeeEnv.Program(ast)
}
