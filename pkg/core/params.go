package core

// Int reads an integer parameter, tolerating the float64 values that
// JSON/YAML decoding produces for whole numbers. Missing keys fall back
// to def.
func (p Params) Int(name string, def int) (int, error) {
	v, ok := p[name]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n == float64(int(n)) {
			return int(n), nil
		}
		return 0, &InvalidParameterError{Name: name, Value: v, Reason: "expected integer"}
	default:
		return 0, &InvalidParameterError{Name: name, Value: v, Reason: "expected integer"}
	}
}

// Float reads a float parameter. Missing keys fall back to def.
func (p Params) Float(name string, def float64) (float64, error) {
	v, ok := p[name]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, &InvalidParameterError{Name: name, Value: v, Reason: "expected float"}
	}
}

// Bool reads a boolean parameter. Missing keys fall back to def.
func (p Params) Bool(name string, def bool) (bool, error) {
	v, ok := p[name]
	if !ok {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, &InvalidParameterError{Name: name, Value: v, Reason: "expected boolean"}
	}
	return b, nil
}

// String reads a string parameter. Missing keys fall back to def.
func (p Params) String(name string, def string) (string, error) {
	v, ok := p[name]
	if !ok {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", &InvalidParameterError{Name: name, Value: v, Reason: "expected string"}
	}
	return s, nil
}
