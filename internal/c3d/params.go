package c3d

import (
	"fmt"
	"strings"

	"example.com/c3dkit/internal/common"
)

const (
	parameterHeaderSize = 4
	maxGroupID          = 127
)

// Group is a named collection of parameters.
type Group struct {
	ID          int
	Name        string
	Description string
	Locked      bool

	keys []string
}

// Parameter is a single typed entry of the dictionary.
type Parameter struct {
	Group       string
	Name        string
	Description string
	Locked      bool
	Value       Value
}

// Key is the composite GROUP:NAME lookup key.
func (p Parameter) Key() string {
	return p.Group + ":" + p.Name
}

// detached copies the exported Dims slice so callers cannot reach into the
// dictionary.
func (p Parameter) detached() Parameter {
	if p.Value.Dims != nil {
		p.Value.Dims = append([]int(nil), p.Value.Dims...)
	}
	return p
}

// Dictionary is the decoded parameter section. It is built once while the
// adapter is constructed and is read-only afterwards.
type Dictionary struct {
	groups  []*Group
	byName  map[string]*Group
	keys    []string
	entries map[string]Parameter
}

func newDictionary() *Dictionary {
	return &Dictionary{
		byName:  make(map[string]*Group),
		entries: make(map[string]Parameter),
	}
}

// normalizeKey upper-cases a GROUP:NAME or GROUP.NAME key.
func normalizeKey(key string) (string, bool) {
	key = strings.ToUpper(strings.TrimSpace(key))
	sep := strings.IndexAny(key, ":.")
	if sep <= 0 || sep == len(key)-1 {
		return "", false
	}
	return key[:sep] + ":" + key[sep+1:], true
}

// Get looks up a parameter by composite key, case-insensitively.
func (d *Dictionary) Get(key string) (Parameter, bool) {
	if d == nil {
		return Parameter{}, false
	}
	norm, ok := normalizeKey(key)
	if !ok {
		return Parameter{}, false
	}
	p, ok := d.entries[norm]
	return p.detached(), ok
}

// Keys returns every composite key in the order the parameters were first
// encountered.
func (d *Dictionary) Keys() []string {
	if d == nil {
		return nil
	}
	return append([]string(nil), d.keys...)
}

func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// Groups returns the groups in file order.
func (d *Dictionary) Groups() []Group {
	if d == nil {
		return nil
	}
	out := make([]Group, 0, len(d.groups))
	for _, g := range d.groups {
		cp := *g
		cp.keys = nil
		out = append(out, cp)
	}
	return out
}

func (d *Dictionary) Group(name string) (Group, bool) {
	if d == nil {
		return Group{}, false
	}
	g, ok := d.byName[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return Group{}, false
	}
	cp := *g
	cp.keys = nil
	return cp, true
}

// Params returns the parameters of one group in file order.
func (d *Dictionary) Params(group string) []Parameter {
	if d == nil {
		return nil
	}
	g, ok := d.byName[strings.ToUpper(strings.TrimSpace(group))]
	if !ok {
		return nil
	}
	out := make([]Parameter, 0, len(g.keys))
	for _, k := range g.keys {
		out = append(out, d.entries[k].detached())
	}
	return out
}

func (d *Dictionary) addGroup(g *Group) {
	if existing, ok := d.byName[g.Name]; ok {
		existing.Description = g.Description
		existing.Locked = g.Locked
		return
	}
	d.groups = append(d.groups, g)
	d.byName[g.Name] = g
}

// put inserts or overwrites a parameter; an overwritten key keeps its
// original position.
func (d *Dictionary) put(p Parameter) {
	key := p.Key()
	if _, exists := d.entries[key]; !exists {
		d.keys = append(d.keys, key)
		g := d.byName[p.Group]
		g.keys = append(g.keys, key)
	}
	d.entries[key] = p
}

type pendingParam struct {
	groupID int
	param   Parameter
}

// parseParameters walks the group/parameter records of a parameter section.
// section starts with the 4-byte section header and spans every block the
// header declares.
func parseParameters(section []byte, p Processor) (*Dictionary, error) {
	dict := newDictionary()
	groupsByID := make(map[int]*Group)
	var pending []pendingParam

	pos := parameterHeaderSize
	for pos+2 <= len(section) {
		nameLen := int(int8(section[pos]))
		id := int(int8(section[pos+1]))
		if nameLen == 0 || id == 0 {
			break
		}
		locked := nameLen < 0
		if locked {
			nameLen = -nameLen
		}
		recordStart := pos
		namePos := pos + 2
		nextPos := namePos + nameLen
		if nextPos+2 > len(section) {
			return nil, fmt.Errorf("%w: record at %d overruns section", ErrParameterBlockCorrupt, recordStart)
		}
		name := strings.ToUpper(decodeText(section[namePos:nextPos]))
		next := int(p.Int16(section[nextPos:]))
		end := len(section)
		switch {
		case next < 0:
			return nil, fmt.Errorf("%w: record %q at %d points backward (%d)", ErrParameterBlockCorrupt, name, recordStart, next)
		case next > 0:
			end = nextPos + next
			if end > len(section) {
				return nil, fmt.Errorf("%w: record %q at %d points past section end", ErrParameterBlockCorrupt, name, recordStart)
			}
		}
		body := section[nextPos+2 : max(end, nextPos+2)]

		if id < 0 {
			gid := -id
			if gid > maxGroupID {
				return nil, fmt.Errorf("%w: group id %d out of range", ErrParameterBlockCorrupt, gid)
			}
			g := &Group{ID: gid, Name: name, Description: readDescription(body), Locked: locked}
			if prev, ok := groupsByID[gid]; ok && prev.Name != name {
				common.Logf("parameter section: group id %d renamed from %q to %q", gid, prev.Name, name)
			}
			groupsByID[gid] = g
			dict.addGroup(g)
		} else {
			param, err := parseParameterBody(body, p)
			if err != nil {
				return nil, fmt.Errorf("%w (parameter %q at %d)", err, name, recordStart)
			}
			param.Name = name
			param.Locked = locked
			pending = append(pending, pendingParam{groupID: id, param: param})
		}

		if next == 0 {
			break
		}
		pos = end
	}

	for _, pp := range pending {
		g, ok := groupsByID[pp.groupID]
		if !ok {
			return nil, fmt.Errorf("%w: parameter %q references missing group %d", ErrParameterBlockCorrupt, pp.param.Name, pp.groupID)
		}
		pp.param.Group = g.Name
		dict.put(pp.param)
	}
	return dict, nil
}

func parseParameterBody(body []byte, p Processor) (Parameter, error) {
	var param Parameter
	if len(body) < 2 {
		return param, fmt.Errorf("%w: parameter payload too short", ErrParameterBlockCorrupt)
	}
	kind, err := kindFromTag(int8(body[0]))
	if err != nil {
		return param, err
	}
	ndim := int(body[1])
	dataPos := 2 + ndim
	if dataPos > len(body) {
		return param, fmt.Errorf("%w: %d dimensions overrun payload", ErrParameterBlockCorrupt, ndim)
	}
	var dims []int
	if ndim > 0 {
		dims = make([]int, ndim)
		for i := range dims {
			dims[i] = int(body[2+i])
		}
	}
	count, ok := elementCount(dims, (len(body)-dataPos)/kind.Width())
	if !ok {
		return param, fmt.Errorf("%w: dimensions %v overrun payload of %d bytes", ErrParameterBlockCorrupt, dims, len(body)-dataPos)
	}
	size := count * kind.Width()
	param.Value = decodeValue(kind, dims, body[dataPos:dataPos+size], p)
	param.Description = readDescription(body[dataPos+size:])
	return param, nil
}

// readDescription decodes a length-prefixed description. Writers frequently
// get the length wrong, so it is clipped to the record instead of failing.
func readDescription(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	n := int(b[0])
	if n > len(b)-1 {
		n = len(b) - 1
	}
	return decodeText(b[1 : 1+n])
}
