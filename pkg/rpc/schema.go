package rpc

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed actions.yaml
var actionsYAML []byte

// ArgType is the JSON type expected for an argument slot.
type ArgType string

const (
	ArgAny    ArgType = ""
	ArgString ArgType = "string"
	ArgNumber ArgType = "number"
	ArgBool   ArgType = "bool"
	ArgList   ArgType = "list"
	ArgObject ArgType = "object"
)

// ArgSchema describes one payload slot of an action.
type ArgSchema struct {
	Name     string  `yaml:"name"`
	Type     ArgType `yaml:"type"`
	Optional bool    `yaml:"optional"`
	// Default fills an absent slot. A slot with a default is never missing.
	Default any `yaml:"default"`
	// Rule is a validator tag applied to present values.
	Rule string `yaml:"rule"`
}

// CheckSchema is a rule comparing two slots, such as ltefield.
type CheckSchema struct {
	Field string `yaml:"field"`
	Other string `yaml:"other"`
	Rule  string `yaml:"rule"`
}

// ActionSchema describes one daemon action.
type ActionSchema struct {
	Action string `yaml:"action"`
	// Binds marks the action that creates the session wallet. It is routed
	// through Client.CreateWallet and is allowed before binding.
	Binds  bool          `yaml:"binds"`
	Args   []ArgSchema   `yaml:"args"`
	Checks []CheckSchema `yaml:"checks"`
}

// Arg returns the slot named name.
func (a ActionSchema) Arg(name string) (ArgSchema, bool) {
	for _, arg := range a.Args {
		if arg.Name == name {
			return arg, true
		}
	}
	return ArgSchema{}, false
}

// Schema is the validated table of daemon actions. It is safe for concurrent
// use.
type Schema struct {
	actions  []ActionSchema
	byAction map[string]int
	validate *validator.Validate
}

// LoadSchema parses a YAML action table and checks every rule in it, so that
// a bad table fails here instead of at call time.
func LoadSchema(data []byte) (*Schema, error) {
	var actions []ActionSchema
	if err := yaml.Unmarshal(data, &actions); err != nil {
		return nil, fmt.Errorf("error parsing action schema: %w", err)
	}

	s := &Schema{
		actions:  actions,
		byAction: make(map[string]int, len(actions)),
		validate: getValidator(),
	}

	for i, a := range actions {
		if a.Action == "" {
			return nil, fmt.Errorf("action schema entry %d has no name", i)
		}
		if _, dup := s.byAction[a.Action]; dup {
			return nil, fmt.Errorf("duplicate action %q", a.Action)
		}
		if err := s.checkAction(a); err != nil {
			return nil, fmt.Errorf("action %q: %w", a.Action, err)
		}
		s.byAction[a.Action] = i
	}

	return s, nil
}

var defaultSchema = sync.OnceValues(func() (*Schema, error) {
	return LoadSchema(actionsYAML)
})

// DefaultSchema returns the built-in table of actions understood by the
// wallet daemon. It panics if the embedded table is invalid.
func DefaultSchema() *Schema {
	s, err := defaultSchema()
	if err != nil {
		panic(fmt.Sprintf("invalid embedded action schema: %v", err))
	}
	return s
}

// Lookup returns the schema of action.
func (s *Schema) Lookup(action string) (ActionSchema, bool) {
	i, ok := s.byAction[action]
	if !ok {
		return ActionSchema{}, false
	}
	return s.actions[i], true
}

// Actions returns all actions in table order.
func (s *Schema) Actions() []ActionSchema {
	out := make([]ActionSchema, len(s.actions))
	copy(out, s.actions)
	return out
}

// Validate checks args against the schema of action and returns a new map
// with defaults filled in and absent optional slots dropped. Failures are
// ValidationErrors.
func (s *Schema) Validate(action string, args map[string]any) (map[string]any, error) {
	a, ok := s.Lookup(action)
	if !ok {
		return nil, newError(KindValidation, nil, "unknown action %q", action)
	}

	var unknown []string
	for name := range args {
		if _, ok := a.Arg(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, newError(KindValidation, nil, "%s: unknown argument(s) %s", action, strings.Join(unknown, ", "))
	}

	out := make(map[string]any, len(a.Args))
	ruleValues := make(map[string]any, len(a.Args))
	for _, arg := range a.Args {
		value, present := args[arg.Name]
		if value == nil {
			present = false
		}
		if !present {
			switch {
			case arg.Default != nil:
				value = arg.Default
			case arg.Optional:
				continue
			default:
				return nil, newError(KindValidation, nil, "%s: missing argument %s", action, arg.Name)
			}
		}

		cv, err := s.checkValue(arg, value)
		if err != nil {
			return nil, newError(KindValidation, err, "%s: invalid argument %s", action, arg.Name)
		}
		out[arg.Name] = value
		ruleValues[arg.Name] = cv
	}

	for _, check := range a.Checks {
		field, ok1 := ruleValues[check.Field]
		other, ok2 := ruleValues[check.Other]
		if !ok1 || !ok2 {
			continue
		}
		if ok, handled := compareNumbers(a, check, out); handled {
			if !ok {
				return nil, newError(KindValidation, ruleFailure{tag: check.Rule}, "%s: %s must satisfy %s against %s", action, check.Field, check.Rule, check.Other)
			}
			continue
		}
		if err := s.runCheck(field, other, check.Rule); err != nil {
			return nil, newError(KindValidation, err, "%s: %s must satisfy %s against %s", action, check.Field, check.Rule, check.Other)
		}
	}

	return out, nil
}

// checkValue verifies the type of value and applies the slot rule. It
// returns the value in the form rules are evaluated on.
func (s *Schema) checkValue(arg ArgSchema, value any) (any, error) {
	cv, err := coerce(arg.Type, value)
	if err != nil {
		return nil, err
	}
	if arg.Rule == "" {
		return cv, nil
	}
	if err := s.runRule(cv, arg.Rule); err != nil {
		return nil, err
	}
	return cv, nil
}

func (s *Schema) runRule(value any, rule string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rule %q cannot be applied: %v", rule, r)
		}
	}()
	return describeValidation(s.validate.Var(value, rule))
}

func (s *Schema) runCheck(field, other any, rule string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rule %q cannot be applied: %v", rule, r)
		}
	}()
	return describeValidation(s.validate.VarWithValue(field, other, rule))
}

// checkAction verifies defaults and rules of a by applying them to sample
// values of each slot type.
func (s *Schema) checkAction(a ActionSchema) error {
	seen := make(map[string]bool, len(a.Args))
	for _, arg := range a.Args {
		if arg.Name == "" {
			return errors.New("argument without a name")
		}
		if seen[arg.Name] {
			return fmt.Errorf("duplicate argument %s", arg.Name)
		}
		seen[arg.Name] = true

		sample, err := sampleValue(arg.Type)
		if err != nil {
			return fmt.Errorf("argument %s: %w", arg.Name, err)
		}
		if arg.Rule != "" {
			if arg.Type == ArgAny {
				return fmt.Errorf("argument %s: a rule requires a type", arg.Name)
			}
			if err := s.runRule(sample, arg.Rule); err != nil && !isRuleFailure(err) {
				return fmt.Errorf("argument %s: %w", arg.Name, err)
			}
		}
		if arg.Default != nil {
			if _, err := s.checkValue(arg, arg.Default); err != nil {
				return fmt.Errorf("argument %s: invalid default: %w", arg.Name, err)
			}
		}
	}

	for _, check := range a.Checks {
		field, ok1 := a.Arg(check.Field)
		other, ok2 := a.Arg(check.Other)
		if !ok1 || !ok2 {
			return fmt.Errorf("check %s on unknown argument", check.Rule)
		}
		fv, _ := sampleValue(field.Type)
		ov, _ := sampleValue(other.Type)
		if err := s.runCheck(fv, ov, check.Rule); err != nil && !isRuleFailure(err) {
			return fmt.Errorf("check %s: %w", check.Rule, err)
		}
	}
	return nil
}

// ruleFailure is a rule that was evaluated and not satisfied.
type ruleFailure struct {
	tag   string
	param string
}

func (f ruleFailure) Error() string {
	if f.param == "" {
		return fmt.Sprintf("failed %q rule", f.tag)
	}
	return fmt.Sprintf("failed %q rule (%s)", f.tag, f.param)
}

func isRuleFailure(err error) bool {
	var f ruleFailure
	return errors.As(err, &f)
}

func describeValidation(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return ruleFailure{tag: verrs[0].Tag(), param: verrs[0].Param()}
	}
	return err
}

func sampleValue(t ArgType) (any, error) {
	switch t {
	case ArgAny:
		return nil, nil
	case ArgString:
		return "", nil
	case ArgNumber:
		return float64(0), nil
	case ArgBool:
		return false, nil
	case ArgList:
		return []any{}, nil
	case ArgObject:
		return map[string]any{}, nil
	default:
		return nil, fmt.Errorf("unknown type %q", t)
	}
}

// coerce checks that value matches t. Numbers of any Go representation,
// decimals, json.Number and numeric strings become float64 so that numeric
// rules compare values uniformly.
func coerce(t ArgType, value any) (any, error) {
	switch t {
	case ArgAny:
		return value, nil
	case ArgString:
		if _, ok := value.(string); ok {
			return value, nil
		}
	case ArgBool:
		if _, ok := value.(bool); ok {
			return value, nil
		}
	case ArgNumber:
		if f, ok := toFloat(value); ok {
			return f, nil
		}
	case ArgList:
		if k := reflect.ValueOf(value).Kind(); k == reflect.Slice || k == reflect.Array {
			return value, nil
		}
	case ArgObject:
		if k := reflect.Indirect(reflect.ValueOf(value)).Kind(); k == reflect.Map || k == reflect.Struct {
			return value, nil
		}
	}
	return nil, fmt.Errorf("expected %s, got %T", t, value)
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v.InexactFloat64(), true
	case *decimal.Decimal:
		if v == nil {
			return 0, false
		}
		return v.InexactFloat64(), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return 0, false
		}
		return d.InexactFloat64(), true
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

// compareNumbers evaluates a field comparison check between two number slots
// on exact decimals. handled is false when the check is not a comparison of
// numbers, in which case the validator decides.
func compareNumbers(a ActionSchema, check CheckSchema, values map[string]any) (ok, handled bool) {
	fieldArg, _ := a.Arg(check.Field)
	otherArg, _ := a.Arg(check.Other)
	if fieldArg.Type != ArgNumber || otherArg.Type != ArgNumber {
		return false, false
	}
	fd, ok1 := toDecimal(values[check.Field])
	od, ok2 := toDecimal(values[check.Other])
	if !ok1 || !ok2 {
		return false, false
	}

	switch c := fd.Cmp(od); check.Rule {
	case "eqfield":
		return c == 0, true
	case "nefield":
		return c != 0, true
	case "gtfield":
		return c > 0, true
	case "gtefield":
		return c >= 0, true
	case "ltfield":
		return c < 0, true
	case "ltefield":
		return c <= 0, true
	default:
		return false, false
	}
}

// toDecimal converts a number argument without losing precision. Floats are
// taken at their shortest decimal representation.
func toDecimal(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, true
	case *decimal.Decimal:
		if v == nil {
			return decimal.Decimal{}, false
		}
		return *v, true
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(v)
		return d, err == nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return decimal.NewFromInt(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(rv.Uint()), 0), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(f), true
	default:
		return decimal.Decimal{}, false
	}
}

// IsAddress reports whether s is a 0x-prefixed 20-byte hex address.
func IsAddress(s string) bool {
	return strings.HasPrefix(s, "0x") && common.IsHexAddress(s)
}

func getValidator() *validator.Validate {
	validate := validator.New()

	if err := validate.RegisterValidation("address", func(fl validator.FieldLevel) bool {
		return fl.Field().Kind() == reflect.String && IsAddress(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("failed to register address validation: %v", err))
	}

	if err := validate.RegisterValidation("items_address", itemsHaveAddress); err != nil {
		panic(fmt.Sprintf("failed to register items_address validation: %v", err))
	}

	validate.RegisterAlias("nft_type", "oneof=DRC721 DRC1155")

	return validate
}

// itemsHaveAddress validates a list of objects: every object carrying the key
// named by the tag parameter must hold a valid address under it.
func itemsHaveAddress(fl validator.FieldLevel) bool {
	key := fl.Param()
	field := fl.Field()
	if field.Kind() != reflect.Slice && field.Kind() != reflect.Array {
		return false
	}

	for i := 0; i < field.Len(); i++ {
		item := field.Index(i)
		if item.Kind() == reflect.Interface {
			item = item.Elem()
		}
		item = reflect.Indirect(item)
		if item.Kind() != reflect.Map || item.Type().Key().Kind() != reflect.String {
			return false
		}

		v := item.MapIndex(reflect.ValueOf(key).Convert(item.Type().Key()))
		if !v.IsValid() {
			continue
		}
		if v.Kind() == reflect.Interface {
			v = v.Elem()
		}
		if v.Kind() != reflect.String || !IsAddress(v.String()) {
			return false
		}
	}
	return true
}
