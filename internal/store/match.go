package store

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// matches evaluates the subset of the Mongo query language the services use.
// Both doc and filter must already be in decoded BSON form (see toDoc).
func matches(doc bson.M, filter bson.M) (bool, error) {
	for key, cond := range filter {
		switch key {
		case "$or", "$and":
			clauses, ok := asArray(cond)
			if !ok {
				return false, fmt.Errorf("%s expects an array", key)
			}
			matched := false
			for _, clause := range clauses {
				sub, ok := asMap(clause)
				if !ok {
					return false, fmt.Errorf("%s clause must be a document", key)
				}
				ok, err := matches(doc, sub)
				if err != nil {
					return false, err
				}
				if key == "$and" && !ok {
					return false, nil
				}
				if ok {
					matched = true
				}
			}
			if key == "$or" && !matched {
				return false, nil
			}
		default:
			value, found := lookup(doc, key)
			ok, err := matchCondition(value, found, cond)
			if err != nil || !ok {
				return false, err
			}
		}
	}
	return true, nil
}

func matchCondition(value interface{}, found bool, cond interface{}) (bool, error) {
	if re, ok := cond.(primitive.Regex); ok {
		return matchRegex(value, re.Pattern, re.Options)
	}
	ops, ok := asMap(cond)
	if !ok || !isOperatorDoc(ops) {
		return matchEq(value, found, cond), nil
	}
	for op, arg := range ops {
		var ok bool
		var err error
		switch op {
		case "$eq":
			ok = matchEq(value, found, arg)
		case "$ne":
			ok = !matchEq(value, found, arg)
		case "$in", "$nin":
			list, isList := asArray(arg)
			if !isList {
				return false, fmt.Errorf("%s expects an array", op)
			}
			for _, candidate := range list {
				if matchEq(value, found, candidate) {
					ok = true
					break
				}
			}
			if op == "$nin" {
				ok = !ok
			}
		case "$gt", "$gte", "$lt", "$lte":
			if !found {
				return false, nil
			}
			c, comparable := compareValues(value, arg)
			if !comparable {
				return false, nil
			}
			switch op {
			case "$gt":
				ok = c > 0
			case "$gte":
				ok = c >= 0
			case "$lt":
				ok = c < 0
			case "$lte":
				ok = c <= 0
			}
		case "$exists":
			want, _ := arg.(bool)
			ok = found == want
		case "$regex":
			pattern, options := "", ""
			switch p := arg.(type) {
			case string:
				pattern = p
			case primitive.Regex:
				pattern, options = p.Pattern, p.Options
			}
			if o, has := ops["$options"].(string); has {
				options = o
			}
			ok, err = matchRegex(value, pattern, options)
		case "$options":
			ok = true
		default:
			return false, fmt.Errorf("unsupported operator %s", op)
		}
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchEq(value interface{}, found bool, want interface{}) bool {
	if !found {
		return want == nil
	}
	if arr, ok := asArray(value); ok {
		if _, wantArr := asArray(want); !wantArr {
			for _, el := range arr {
				if equalValues(el, want) {
					return true
				}
			}
			return false
		}
	}
	return equalValues(value, want)
}

func matchRegex(value interface{}, pattern, options string) (bool, error) {
	s, ok := value.(string)
	if !ok {
		return false, nil
	}
	if strings.Contains(options, "i") {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Errorf("invalid regex %q: %w", pattern, err)
	}
	return re.MatchString(s), nil
}

func isOperatorDoc(m bson.M) bool {
	if len(m) == 0 {
		return false
	}
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return false
		}
	}
	return true
}

func lookup(doc bson.M, path string) (interface{}, bool) {
	var cur interface{} = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func setPath(doc bson.M, path string, value interface{}) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := asMap(cur[part])
		if !ok {
			next = bson.M{}
		}
		cur[part] = next
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}

func asMap(v interface{}) (bson.M, bool) {
	switch m := v.(type) {
	case bson.M:
		return m, true
	case map[string]interface{}:
		return bson.M(m), true
	case bson.D:
		out := bson.M{}
		for _, e := range m {
			out[e.Key] = e.Value
		}
		return out, true
	}
	return nil, false
}

func asArray(v interface{}) ([]interface{}, bool) {
	switch a := v.(type) {
	case bson.A:
		return a, true
	case []interface{}:
		return a, true
	case []bson.M:
		out := make([]interface{}, len(a))
		for i := range a {
			out[i] = a[i]
		}
		return out, true
	}
	return nil, false
}

// normalize collapses numeric widths and typed strings so values compare by content.
func normalize(v interface{}) interface{} {
	switch x := v.(type) {
	case nil:
		return nil
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case int:
		return float64(x)
	case float64:
		return x
	case primitive.DateTime:
		return x
	case string, bool:
		return x
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32:
		return rv.Float()
	}
	return v
}

func compareValues(a, b interface{}) (int, bool) {
	a, b = normalize(a), normalize(b)
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		if !ok {
			return 0, false
		}
		return cmp3(x < y, x > y), true
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case primitive.DateTime:
		y, ok := b.(primitive.DateTime)
		if !ok {
			return 0, false
		}
		return cmp3(x < y, x > y), true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		return cmp3(!x && y, x && !y), true
	}
	return 0, false
}

func equalValues(a, b interface{}) bool {
	if c, ok := compareValues(a, b); ok {
		return c == 0
	}
	na, nb := normalize(a), normalize(b)
	if na == nil || nb == nil {
		return na == nil && nb == nil
	}
	return reflect.DeepEqual(na, nb)
}

// sortCompare orders missing values first, then by compareValues.
func sortCompare(a interface{}, aFound bool, b interface{}, bFound bool) int {
	switch {
	case !aFound && !bFound:
		return 0
	case !aFound:
		return -1
	case !bFound:
		return 1
	}
	c, _ := compareValues(a, b)
	return c
}

func cmp3(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	}
	return 0
}
