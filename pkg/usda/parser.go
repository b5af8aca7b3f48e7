package usda

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chazu/kiln/pkg/scene"
)

// MaxDepth is the deepest block nesting below a top-level prim that still
// produces nodes. Deeper blocks are consumed and reported.
const MaxDepth = 10

// Document is the decoded form of a .usda layer.
type Document struct {
	Header        string // first line, e.g. "#usda 1.0"
	UpAxis        string
	MetersPerUnit float64
	DefaultPrim   string
	Prims         []*scene.Prim
	Issues        []scene.Issue
}

// parseError is a recoverable syntax error at a known line.
type parseError struct {
	line int
	msg  string
}

func (e *parseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.line, e.msg)
}

type parser struct {
	toks   []token
	pos    int
	issues []scene.Issue
}

// Parse decodes src. Syntax problems never abort the parse: each one is
// recorded as an issue and the parser resumes at the next line.
func Parse(src string) *Document {
	doc := &Document{
		UpAxis:        scene.DefaultUpAxis,
		MetersPerUnit: scene.DefaultMetersPerUnit,
		DefaultPrim:   scene.DefaultPrimName,
	}
	if strings.HasPrefix(src, "#usda") {
		doc.Header = strings.TrimSpace(strings.SplitN(src, "\n", 2)[0])
	}

	toks, err := lex(src)
	p := &parser{toks: toks}
	if err != nil {
		le := err.(*lexError)
		p.issue(scene.IssueParseIncomplete, le.line, le.msg)
		p.toks = append(p.toks, token{kind: tokEOF, line: le.line})
	}

	if p.peek().is(tokPunct, "(") {
		p.parseStageMetadata(doc)
	}

	recovering := false
	for p.peek().kind != tokEOF {
		t := p.peek()
		if t.kind == tokIdent && isSpecifier(t.text) {
			recovering = false
			if prim := p.parseBlock(0, ""); prim != nil {
				doc.Prims = append(doc.Prims, prim)
			}
			continue
		}
		if !recovering {
			p.issue(scene.IssueParseIncomplete, t.line, fmt.Sprintf("unexpected %s at top level", t))
			recovering = true
		}
		p.skipValueOrToken()
	}

	doc.Issues = p.issues
	return doc
}

func isSpecifier(s string) bool {
	return s == "def" || s == "over" || s == "class"
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) peekAt(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

// lastLine returns the line of the most recently consumed token.
func (p *parser) lastLine() int {
	if p.pos == 0 {
		return p.peek().line
	}
	return p.toks[p.pos-1].line
}

func (p *parser) accept(kind tokenKind, text string) bool {
	if p.peek().is(kind, text) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(kind tokenKind, text string) (token, error) {
	t := p.peek()
	if t.kind != kind || (text != "" && t.text != text) {
		want := kind.String()
		if text != "" {
			want = fmt.Sprintf("%q", text)
		}
		return t, &parseError{line: t.line, msg: fmt.Sprintf("expected %s, got %s", want, t)}
	}
	return p.next(), nil
}

func (p *parser) issue(kind scene.IssueKind, line int, msg string) {
	p.issues = append(p.issues, scene.Issue{Kind: kind, Line: line, Message: msg})
}

func (p *parser) issueErr(path string, err error) {
	line := 0
	msg := err.Error()
	if pe, ok := err.(*parseError); ok {
		line, msg = pe.line, pe.msg
	}
	p.issues = append(p.issues, scene.Issue{Kind: scene.IssueParseIncomplete, Path: path, Line: line, Message: msg})
}

// ---------------------------------------------------------------------------
// Recovery
// ---------------------------------------------------------------------------

// skipBalanced consumes an opening bracket and everything up to and
// including its matching close.
func (p *parser) skipBalanced() {
	open := p.next().text
	closer := map[string]string{"{": "}", "(": ")", "[": "]"}[open]
	depth := 1
	for depth > 0 {
		t := p.next()
		switch {
		case t.kind == tokEOF:
			return
		case t.is(tokPunct, open):
			depth++
		case t.is(tokPunct, closer):
			depth--
		}
	}
}

// skipValueOrToken consumes one token, or a whole bracketed group.
func (p *parser) skipValueOrToken() {
	t := p.peek()
	if t.kind == tokPunct && (t.text == "{" || t.text == "(" || t.text == "[") {
		p.skipBalanced()
		return
	}
	p.next()
}

// skipLine consumes tokens on the given line. Bracketed groups that start on
// the line are consumed whole. A closing brace is left for the caller.
func (p *parser) skipLine(line int) {
	for {
		t := p.peek()
		if t.kind == tokEOF || t.line != line || t.is(tokPunct, "}") {
			return
		}
		p.skipValueOrToken()
	}
}

// skipBlock consumes a block header and its braced body.
func (p *parser) skipBlock() {
	for {
		t := p.peek()
		switch {
		case t.kind == tokEOF:
			return
		case t.is(tokPunct, "}"):
			return
		case t.is(tokPunct, "{"):
			p.skipBalanced()
			return
		}
		p.skipValueOrToken()
	}
}

// ---------------------------------------------------------------------------
// Values
// ---------------------------------------------------------------------------

func (p *parser) parseValue() (value, error) {
	t := p.peek()
	switch t.kind {
	case tokNumber:
		p.next()
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return value{}, &parseError{line: t.line, msg: fmt.Sprintf("bad number %q", t.text)}
		}
		return value{kind: valNumber, text: t.text, num: f, line: t.line}, nil
	case tokString:
		p.next()
		return value{kind: valString, text: t.text, line: t.line}, nil
	case tokAsset:
		p.next()
		return value{kind: valAsset, text: t.text, line: t.line}, nil
	case tokPath:
		p.next()
		return value{kind: valPath, text: t.text, line: t.line}, nil
	case tokIdent:
		p.next()
		// inf, -inf, nan
		if f, err := strconv.ParseFloat(t.text, 64); err == nil {
			return value{kind: valNumber, text: t.text, num: f, line: t.line}, nil
		}
		return value{kind: valIdent, text: t.text, line: t.line}, nil
	case tokPunct:
		switch t.text {
		case "(":
			return p.parseSequence(valTuple, ")")
		case "[":
			return p.parseSequence(valList, "]")
		case "{":
			p.skipBalanced()
			return value{kind: valDict, line: t.line}, nil
		}
	}
	return value{}, &parseError{line: t.line, msg: fmt.Sprintf("expected value, got %s", t)}
}

func (p *parser) parseSequence(kind valueKind, closer string) (value, error) {
	open := p.next()
	v := value{kind: kind, line: open.line}
	for {
		if p.accept(tokPunct, closer) {
			return v, nil
		}
		if p.peek().kind == tokEOF {
			return value{}, &parseError{line: open.line, msg: fmt.Sprintf("missing %q", closer)}
		}
		item, err := p.parseValue()
		if err != nil {
			return value{}, err
		}
		v.items = append(v.items, item)
		if !p.accept(tokPunct, ",") && !p.peek().is(tokPunct, closer) {
			t := p.peek()
			return value{}, &parseError{line: t.line, msg: fmt.Sprintf("expected ',' or %q, got %s", closer, t)}
		}
	}
}

// ---------------------------------------------------------------------------
// Metadata
// ---------------------------------------------------------------------------

var listOps = map[string]bool{
	"prepend": true, "append": true, "add": true, "delete": true, "reorder": true,
}

// parseMetadata reads a parenthesized metadata clause into key/value pairs.
// Doc strings are stored under "doc".
func (p *parser) parseMetadata() (map[string]value, error) {
	open, err := p.expect(tokPunct, "(")
	if err != nil {
		return nil, err
	}
	meta := make(map[string]value)
	for {
		t := p.peek()
		switch {
		case t.kind == tokEOF:
			return meta, &parseError{line: open.line, msg: "unterminated metadata"}
		case t.is(tokPunct, ")"):
			p.next()
			return meta, nil
		case t.is(tokPunct, ";"):
			p.next()
			continue
		case t.kind == tokString:
			p.next()
			meta["doc"] = value{kind: valString, text: t.text, line: t.line}
			continue
		}

		if t.kind == tokIdent && listOps[t.text] && p.peekAt(1).kind == tokIdent {
			p.next()
		}
		key, err := p.expect(tokIdent, "")
		if err != nil {
			return meta, err
		}
		if !p.accept(tokPunct, "=") {
			meta[key.text] = value{kind: valIdent, text: key.text, line: key.line}
			continue
		}
		v, err := p.parseValue()
		if err != nil {
			return meta, err
		}
		// payload = @a.usda@</Prim>
		if v.kind == valAsset && p.peek().kind == tokPath {
			p.next()
		}
		meta[key.text] = v
	}
}

func (p *parser) parseStageMetadata(doc *Document) {
	meta, err := p.parseMetadata()
	if err != nil {
		p.issueErr("", err)
		p.skipLine(p.lastLine())
	}
	if v, ok := meta["upAxis"]; ok {
		if v.kind == valString && v.text != "" {
			doc.UpAxis = v.text
		} else {
			p.issue(scene.IssueParseIncomplete, v.line, "upAxis must be a string")
		}
	}
	if v, ok := meta["metersPerUnit"]; ok {
		if v.kind == valNumber && v.num > 0 {
			doc.MetersPerUnit = v.num
		} else {
			p.issue(scene.IssueParseIncomplete, v.line, "metersPerUnit must be a positive number")
		}
	}
	if v, ok := meta["defaultPrim"]; ok {
		if v.kind == valString && v.text != "" {
			doc.DefaultPrim = v.text
		} else {
			p.issue(scene.IssueParseIncomplete, v.line, "defaultPrim must be a string")
		}
	}
}

// ---------------------------------------------------------------------------
// Blocks
// ---------------------------------------------------------------------------

// parseBlock reads one def/over/class block. It returns nil for over and
// class blocks, for blocks nested past MaxDepth and for blocks whose
// header is malformed.
func (p *parser) parseBlock(depth int, parentPath string) *scene.Prim {
	specifier := p.next()

	if depth > MaxDepth {
		p.issues = append(p.issues, scene.Issue{
			Kind:    scene.IssueDepthExceeded,
			Path:    parentPath,
			Line:    specifier.line,
			Message: fmt.Sprintf("nesting deeper than %d levels ignored", MaxDepth),
		})
		p.skipBlock()
		return nil
	}

	kind := ""
	if p.peek().kind == tokIdent {
		kind = p.next().text
	}
	name, err := p.expect(tokString, "")
	if err != nil {
		p.issueErr(parentPath, err)
		p.skipBlock()
		return nil
	}

	prim := &scene.Prim{Name: name.text, Kind: kind, Line: specifier.line}
	path := parentPath + "/" + name.text

	if p.peek().is(tokPunct, "(") {
		meta, err := p.parseMetadata()
		if err != nil {
			p.issueErr(path, err)
		}
		for _, v := range meta {
			if v.contains("PhysicsCollisionAPI") {
				prim.Collision = true
			}
		}
	}

	if _, err := p.expect(tokPunct, "{"); err != nil {
		p.issueErr(path, err)
		p.skipBlock()
		return nil
	}

	metaCollision := prim.Collision
	p.parseBody(prim, depth, path)
	if metaCollision {
		prim.Collision = true
	}

	if specifier.text != "def" {
		return nil
	}
	return prim
}

// parseBody reads block contents up to and including the closing brace.
func (p *parser) parseBody(prim *scene.Prim, depth int, path string) {
	recovering := false
	for {
		t := p.peek()
		switch {
		case t.kind == tokEOF:
			p.issue(scene.IssueParseIncomplete, t.line, fmt.Sprintf("block %q is missing '}'", prim.Name))
			return
		case t.is(tokPunct, "}"):
			p.next()
			return
		case t.kind == tokIdent && isSpecifier(t.text):
			recovering = false
			if child := p.parseBlock(depth+1, path); child != nil {
				prim.Children = append(prim.Children, child)
			}
		case t.is(tokIdent, "variantSet") && p.peekAt(1).kind == tokString:
			recovering = false
			p.skipBlock()
		case t.kind == tokIdent:
			recovering = false
			if err := p.parseProperty(prim); err != nil {
				p.issueErr(path, err)
				p.skipLine(p.lastLine())
				recovering = true
			}
		default:
			if !recovering {
				p.issue(scene.IssueParseIncomplete, t.line, fmt.Sprintf("unexpected %s in block %q", t, prim.Name))
				recovering = true
			}
			p.skipValueOrToken()
		}
	}
}

var propertyQualifiers = map[string]bool{
	"uniform": true, "custom": true, "varying": true, "config": true,
	"prepend": true, "append": true, "add": true, "delete": true, "reorder": true,
}

// parseProperty reads one attribute or relationship declaration and
// applies the ones a mesh cares about.
func (p *parser) parseProperty(prim *scene.Prim) error {
	for p.peek().kind == tokIdent && propertyQualifiers[p.peek().text] && p.peekAt(1).kind == tokIdent {
		p.next()
	}

	typ, err := p.expect(tokIdent, "")
	if err != nil {
		return err
	}
	isArray := false
	if p.accept(tokPunct, "[") {
		if _, err := p.expect(tokPunct, "]"); err != nil {
			return err
		}
		isArray = true
	}

	// "variantSets = ..." style metadata-like statements have no type.
	var name token
	if p.peek().is(tokPunct, "=") {
		name = typ
	} else {
		name, err = p.expect(tokIdent, "")
		if err != nil {
			return err
		}
	}

	if !p.accept(tokPunct, "=") {
		if p.peek().is(tokPunct, "(") {
			_, err := p.parseMetadata()
			return err
		}
		return nil
	}

	v, err := p.parseValue()
	if err != nil {
		return err
	}
	if p.peek().is(tokPunct, "(") {
		if _, err := p.parseMetadata(); err != nil {
			return err
		}
	}

	return applyProperty(prim, typ.text, isArray, name.text, v)
}

func applyProperty(prim *scene.Prim, typ string, isArray bool, name string, v value) error {
	switch name {
	case "points":
		pts, err := v.asVec3List()
		if err != nil {
			return &parseError{line: v.line, msg: fmt.Sprintf("points: %v", err)}
		}
		prim.Points = pts
	case "faceVertexCounts":
		counts, err := v.asIntList()
		if err != nil {
			return &parseError{line: v.line, msg: fmt.Sprintf("faceVertexCounts: %v", err)}
		}
		prim.FaceVertexCounts = counts
	case "faceVertexIndices":
		idx, err := v.asIntList()
		if err != nil {
			return &parseError{line: v.line, msg: fmt.Sprintf("faceVertexIndices: %v", err)}
		}
		prim.FaceVertexIndices = idx
	case "primvars:displayColor":
		c, err := v.asColor()
		if err != nil {
			return &parseError{line: v.line, msg: fmt.Sprintf("displayColor: %v", err)}
		}
		prim.DisplayColor = &c
	case "physics:collisionEnabled":
		on, err := v.asBool()
		if err != nil {
			return &parseError{line: v.line, msg: fmt.Sprintf("collisionEnabled: %v", err)}
		}
		prim.Collision = on
	}
	return nil
}
