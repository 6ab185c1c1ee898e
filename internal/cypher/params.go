package cypher

// Params is the parameter table of one statement.
//
// Entries are identified by their allocation order. Keyed entries are shared:
// binding the same key twice returns the same Param, so a claim referenced by
// several rules is passed once.
//
// A Params table belongs to a single compilation and is not safe for
// concurrent use.
type Params struct {
	values []any
	keyed  map[string]Param
}

// NewParams creates an empty parameter table.
func NewParams() *Params {
	return &Params{keyed: make(map[string]Param)}
}

// Add appends a value and returns its reference.
func (p *Params) Add(value any) Param {
	p.values = append(p.values, value)
	return Param{id: len(p.values) - 1}
}

// Keyed returns the parameter bound to key, adding value under that key the
// first time.
func (p *Params) Keyed(key string, value any) Param {
	if existing, ok := p.keyed[key]; ok {
		return existing
	}
	param := p.Add(value)
	p.keyed[key] = param
	return param
}

// Len returns the number of allocated parameters.
func (p *Params) Len() int {
	return len(p.values)
}

// Value returns the value bound to param.
func (p *Params) Value(param Param) any {
	return p.values[param.id]
}

// NamedParam is a serialized parameter: the name used in statement text and
// its value. Names are assigned in order of first appearance in the text.
type NamedParam struct {
	Name  string
	Value any
}
