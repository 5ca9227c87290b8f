package dynamotest

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
)

// evalCondition evaluates a condition, key condition or filter against item (nil when absent).
// An empty expression is always true.
func evalCondition(expr string, item map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) (bool, error) {
	expr = stripParens(strings.TrimSpace(expr))
	if expr == "" {
		return true, nil
	}
	if parts := splitTop(expr, " OR "); len(parts) > 1 {
		for _, p := range parts {
			ok, err := evalCondition(p, item, names, values)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	}
	if parts := splitTop(expr, " AND "); len(parts) > 1 {
		for _, p := range parts {
			ok, err := evalCondition(p, item, names, values)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
	return evalTerm(expr, item, names, values)
}

var comparators = []string{"<>", ">=", "<=", "=", ">", "<"}

func evalTerm(term string, item map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) (bool, error) {
	if arg, ok := call(term, "attribute_exists"); ok {
		_, found, err := resolvePath(item, arg, names)
		return found, err
	}
	if arg, ok := call(term, "attribute_not_exists"); ok {
		_, found, err := resolvePath(item, arg, names)
		return !found, err
	}
	if strings.HasPrefix(term, "NOT ") {
		ok, err := evalCondition(strings.TrimPrefix(term, "NOT "), item, names, values)
		return !ok, err
	}
	for _, op := range comparators {
		idx := strings.Index(term, " "+op+" ")
		if idx < 0 {
			continue
		}
		left, lok, err := operand(strings.TrimSpace(term[:idx]), item, names, values)
		if err != nil {
			return false, err
		}
		right, rok, err := operand(strings.TrimSpace(term[idx+len(op)+2:]), item, names, values)
		if err != nil {
			return false, err
		}
		if !lok || !rok {
			return op == "<>" && lok != rok, nil
		}
		return compare(left, right, op)
	}
	return false, fmt.Errorf("dynamotest: unsupported condition %q", term)
}

func operand(tok string, item map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) (types.AttributeValue, bool, error) {
	if strings.HasPrefix(tok, ":") {
		v, ok := values[tok]
		if !ok {
			return nil, false, fmt.Errorf("dynamotest: missing value %s", tok)
		}
		return v, true, nil
	}
	return resolvePath(item, tok, names)
}

func compare(a, b types.AttributeValue, op string) (bool, error) {
	var c int
	switch x := a.(type) {
	case *types.AttributeValueMemberN:
		y, ok := b.(*types.AttributeValueMemberN)
		if !ok {
			return op == "<>", nil
		}
		dx, err := decimal.NewFromString(x.Value)
		if err != nil {
			return false, err
		}
		dy, err := decimal.NewFromString(y.Value)
		if err != nil {
			return false, err
		}
		c = dx.Cmp(dy)
	case *types.AttributeValueMemberS:
		y, ok := b.(*types.AttributeValueMemberS)
		if !ok {
			return op == "<>", nil
		}
		c = strings.Compare(x.Value, y.Value)
	default:
		eq := reflect.DeepEqual(a, b)
		switch op {
		case "=":
			return eq, nil
		case "<>":
			return !eq, nil
		}
		return false, fmt.Errorf("dynamotest: cannot order %T", a)
	}
	switch op {
	case "=":
		return c == 0, nil
	case "<>":
		return c != 0, nil
	case ">=":
		return c >= 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	default:
		return c < 0, nil
	}
}

var clauseRe = regexp.MustCompile(`(?:^|\s)(SET|ADD|REMOVE)\s`)

// applyUpdate mutates item according to an update expression.
func applyUpdate(expr string, item map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) error {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil
	}
	locs := clauseRe.FindAllStringSubmatchIndex(expr, -1)
	if len(locs) == 0 {
		return fmt.Errorf("dynamotest: unsupported update %q", expr)
	}
	for i, loc := range locs {
		end := len(expr)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		keyword := expr[loc[2]:loc[3]]
		body := expr[loc[1]:end]
		for _, action := range splitTop(body, ",") {
			action = strings.TrimSpace(action)
			if action == "" {
				continue
			}
			if err := applyAction(keyword, action, item, names, values); err != nil {
				return err
			}
		}
	}
	return nil
}

func applyAction(keyword, action string, item map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) error {
	switch keyword {
	case "SET":
		eq := strings.Index(action, "=")
		if eq < 0 {
			return fmt.Errorf("dynamotest: bad SET action %q", action)
		}
		path := strings.TrimSpace(action[:eq])
		v, err := valueExpr(strings.TrimSpace(action[eq+1:]), item, names, values)
		if err != nil {
			return err
		}
		return setPath(item, path, names, v)
	case "ADD":
		fields := strings.Fields(action)
		if len(fields) != 2 {
			return fmt.Errorf("dynamotest: bad ADD action %q", action)
		}
		delta, ok := values[fields[1]]
		if !ok {
			return fmt.Errorf("dynamotest: missing value %s", fields[1])
		}
		cur, found, err := resolvePath(item, fields[0], names)
		if err != nil {
			return err
		}
		if !found {
			return setPath(item, fields[0], names, delta)
		}
		sum, err := arith(cur, delta, "+")
		if err != nil {
			return err
		}
		return setPath(item, fields[0], names, sum)
	case "REMOVE":
		return removePath(item, action, names)
	}
	return fmt.Errorf("dynamotest: unsupported clause %s", keyword)
}

func valueExpr(expr string, item map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) (types.AttributeValue, error) {
	expr = strings.TrimSpace(expr)
	if args, ok := call(expr, "list_append"); ok {
		parts := splitTop(args, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("dynamotest: list_append needs two args: %q", expr)
		}
		a, err := valueExpr(parts[0], item, names, values)
		if err != nil {
			return nil, err
		}
		b, err := valueExpr(parts[1], item, names, values)
		if err != nil {
			return nil, err
		}
		la, ok1 := a.(*types.AttributeValueMemberL)
		lb, ok2 := b.(*types.AttributeValueMemberL)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("dynamotest: list_append on non-list")
		}
		out := append(append([]types.AttributeValue{}, la.Value...), lb.Value...)
		return &types.AttributeValueMemberL{Value: out}, nil
	}
	if args, ok := call(expr, "if_not_exists"); ok {
		parts := splitTop(args, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("dynamotest: if_not_exists needs two args: %q", expr)
		}
		cur, found, err := resolvePath(item, strings.TrimSpace(parts[0]), names)
		if err != nil {
			return nil, err
		}
		if found {
			return cur, nil
		}
		return valueExpr(parts[1], item, names, values)
	}
	for _, op := range []string{" + ", " - "} {
		if parts := splitTop(expr, op); len(parts) == 2 {
			a, err := valueExpr(parts[0], item, names, values)
			if err != nil {
				return nil, err
			}
			b, err := valueExpr(parts[1], item, names, values)
			if err != nil {
				return nil, err
			}
			return arith(a, b, strings.TrimSpace(op))
		}
	}
	v, found, err := operand(expr, item, names, values)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("dynamotest: %s does not exist", expr)
	}
	return v, nil
}

func arith(a, b types.AttributeValue, op string) (types.AttributeValue, error) {
	x, ok1 := a.(*types.AttributeValueMemberN)
	y, ok2 := b.(*types.AttributeValueMemberN)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("dynamotest: arithmetic on non-number")
	}
	dx, err := decimal.NewFromString(x.Value)
	if err != nil {
		return nil, err
	}
	dy, err := decimal.NewFromString(y.Value)
	if err != nil {
		return nil, err
	}
	if op == "-" {
		return &types.AttributeValueMemberN{Value: dx.Sub(dy).String()}, nil
	}
	return &types.AttributeValueMemberN{Value: dx.Add(dy).String()}, nil
}

func pathSegments(path string, names map[string]string) ([]string, error) {
	raw := strings.Split(strings.TrimSpace(path), ".")
	segs := make([]string, 0, len(raw))
	for _, s := range raw {
		if strings.HasPrefix(s, "#") {
			n, ok := names[s]
			if !ok {
				return nil, fmt.Errorf("dynamotest: missing name %s", s)
			}
			s = n
		}
		segs = append(segs, s)
	}
	return segs, nil
}

func resolvePath(item map[string]types.AttributeValue, path string, names map[string]string) (types.AttributeValue, bool, error) {
	segs, err := pathSegments(path, names)
	if err != nil {
		return nil, false, err
	}
	cur := item
	for i, s := range segs {
		v, ok := cur[s]
		if !ok {
			return nil, false, nil
		}
		if i == len(segs)-1 {
			return v, true, nil
		}
		m, ok := v.(*types.AttributeValueMemberM)
		if !ok {
			return nil, false, nil
		}
		cur = m.Value
	}
	return nil, false, nil
}

func setPath(item map[string]types.AttributeValue, path string, names map[string]string, v types.AttributeValue) error {
	segs, err := pathSegments(path, names)
	if err != nil {
		return err
	}
	cur := item
	for _, s := range segs[:len(segs)-1] {
		m, ok := cur[s].(*types.AttributeValueMemberM)
		if !ok {
			return fmt.Errorf("dynamotest: document path %s invalid", path)
		}
		cur = m.Value
	}
	cur[segs[len(segs)-1]] = cloneAV(v)
	return nil
}

func removePath(item map[string]types.AttributeValue, path string, names map[string]string) error {
	segs, err := pathSegments(path, names)
	if err != nil {
		return err
	}
	cur := item
	for _, s := range segs[:len(segs)-1] {
		m, ok := cur[s].(*types.AttributeValueMemberM)
		if !ok {
			return nil
		}
		cur = m.Value
	}
	delete(cur, segs[len(segs)-1])
	return nil
}

// call matches fn(args) and returns args.
func call(expr, fn string) (string, bool) {
	expr = strings.TrimSpace(expr)
	if !strings.HasPrefix(expr, fn) || !strings.HasSuffix(expr, ")") {
		return "", false
	}
	rest := strings.TrimSpace(expr[len(fn):])
	if !strings.HasPrefix(rest, "(") {
		return "", false
	}
	return rest[1 : len(rest)-1], true
}

// splitTop splits s on sep outside of parentheses.
func splitTop(s, sep string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth == 0 && strings.HasPrefix(s[i:], sep) {
			parts = append(parts, s[start:i])
			start = i + len(sep)
			i += len(sep) - 1
		}
	}
	return append(parts, s[start:])
}

// stripParens removes parentheses wrapping the whole expression.
func stripParens(s string) string {
	for strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		depth := 0
		wraps := true
		for i := 0; i < len(s); i++ {
			switch s[i] {
			case '(':
				depth++
			case ')':
				depth--
			}
			if depth == 0 && i < len(s)-1 {
				wraps = false
				break
			}
		}
		if !wraps {
			return s
		}
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
