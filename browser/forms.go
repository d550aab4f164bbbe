package browser

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/minimech/minimech/charset"
	"github.com/minimech/minimech/htmltree"
)

// UnsupportedFormError marks form constructs this package refuses to
// guess about: multipart encodings, exotic methods, ambiguous fields.
type UnsupportedFormError struct {
	Reason string
}

func (e *UnsupportedFormError) Error() string {
	return "browser: unsupported form: " + e.Reason
}

// InputNotFoundError is returned when a named input does not exist in
// a form.
type InputNotFoundError struct {
	Name string
}

func (e *InputNotFoundError) Error() string {
	return fmt.Sprintf("browser: no input named %q", e.Name)
}

// InvalidOptionError is returned when a value cannot be selected
// because no option or radio button carries it.
type InvalidOptionError struct {
	Name  string
	Value string
}

func (e *InvalidOptionError) Error() string {
	return fmt.Sprintf("browser: no option with value %q for %q", e.Value, e.Name)
}

// Form wraps a form element with enough context to fill it in and
// submit it.
type Form struct {
	Element *htmltree.Element
	Page    *Page
}

// Name returns the form's name attribute.
func (f *Form) Name() string {
	return f.Element.Attr("name")
}

// ID returns the form's id attribute.
func (f *Form) ID() string {
	return f.Element.Attr("id")
}

// Method returns the submission method, uppercased, defaulting to GET.
func (f *Form) Method() string {
	m := strings.ToUpper(strings.TrimSpace(f.Element.Attr("method")))
	if m == "" {
		return http.MethodGet
	}
	return m
}

// Action returns the absolute submission URL. An absent or empty
// action submits back to the page itself.
func (f *Form) Action() *url.URL {
	action := strings.TrimSpace(f.Element.Attr("action"))
	if action == "" {
		base := f.Page.BaseURI()
		return base
	}
	ref, err := url.Parse(action)
	if err != nil {
		return f.Page.BaseURI()
	}
	resolved := f.Page.BaseURI().ResolveReference(ref)
	resolved.Fragment = ""
	return resolved
}

// Enctype returns the declared encoding type, defaulting to
// urlencoded.
func (f *Form) Enctype() string {
	e := strings.ToLower(strings.TrimSpace(f.Element.Attr("enctype")))
	if e == "" {
		return "application/x-www-form-urlencoded"
	}
	return e
}

// AcceptCharset returns the canonical name of the encoding form data
// is submitted in: the first resolvable accept-charset token, else the
// page's own charset.
func (f *Form) AcceptCharset() string {
	for _, label := range strings.Fields(f.Element.Attr("accept-charset")) {
		if name, ok := charset.Resolve(label); ok {
			return name
		}
	}
	if f.Page != nil && f.Page.Charset != "" {
		return f.Page.Charset
	}
	return "utf-8"
}

// InputQuery filters the inputs of a form. Zero-value fields match
// anything.
type InputQuery struct {
	Name string
	ID   string
	Type string
}

func (q InputQuery) matches(in *Input) bool {
	if q.Name != "" && in.Name() != q.Name {
		return false
	}
	if q.ID != "" && in.ID() != q.ID {
		return false
	}
	if q.Type != "" && in.Type() != q.Type {
		return false
	}
	return true
}

func isInputTag(tag string) bool {
	switch strings.ToLower(tag) {
	case "input", "select", "textarea":
		return true
	default:
		return false
	}
}

// Inputs lists the form's inputs, selects and textareas matching the
// query, in document order.
func (f *Form) Inputs(q InputQuery) []*Input {
	var out []*Input
	for el := range f.Element.Iter("") {
		if !isInputTag(el.Tag) {
			continue
		}
		in := &Input{Element: el}
		if q.matches(in) {
			out = append(out, in)
		}
	}
	return out
}

// Input returns the single input matching the query. Zero matches
// yield an InputNotFoundError, several an UnsupportedFormError.
func (f *Form) Input(q InputQuery) (*Input, error) {
	all := f.Inputs(q)
	switch len(all) {
	case 0:
		return nil, &InputNotFoundError{Name: q.Name}
	case 1:
		return all[0], nil
	default:
		return nil, &UnsupportedFormError{Reason: fmt.Sprintf("query matches %d inputs", len(all))}
	}
}

// Field reads the current value of a named field. For a radio group
// it is the value of the checked button, or "" when none is checked.
func (f *Form) Field(name string) (string, error) {
	all := f.Inputs(InputQuery{Name: name})
	if len(all) == 0 {
		return "", &InputNotFoundError{Name: name}
	}
	if all[0].Type() == "radio" {
		var checked []*Input
		for _, in := range all {
			if in.Type() != "radio" {
				return "", &UnsupportedFormError{Reason: fmt.Sprintf("field %q mixes radio and non-radio inputs", name)}
			}
			if in.Checked() {
				checked = append(checked, in)
			}
		}
		if len(checked) > 1 {
			return "", &UnsupportedFormError{Reason: fmt.Sprintf("radio group %q has several checked buttons", name)}
		}
		if len(checked) == 0 {
			return "", nil
		}
		return checked[0].Value()
	}
	if len(all) > 1 {
		return "", &UnsupportedFormError{Reason: fmt.Sprintf("several inputs named %q", name)}
	}
	return all[0].Value()
}

// SetField assigns a value to a named field. Radio groups check the
// button carrying the value. Checkboxes are refused: toggle them via
// SetChecked so a typo cannot silently check a box.
func (f *Form) SetField(name, value string) error {
	all := f.Inputs(InputQuery{Name: name})
	if len(all) == 0 {
		return &InputNotFoundError{Name: name}
	}
	if all[0].Type() == "radio" {
		var target *Input
		for _, in := range all {
			v, err := in.Value()
			if err != nil {
				return err
			}
			if v == value {
				target = in
				break
			}
		}
		if target == nil {
			return &InvalidOptionError{Name: name, Value: value}
		}
		for _, in := range all {
			in.SetChecked(in == target)
		}
		return nil
	}
	if len(all) > 1 {
		return &UnsupportedFormError{Reason: fmt.Sprintf("several inputs named %q", name)}
	}
	if all[0].Type() == "checkbox" {
		return &UnsupportedFormError{Reason: fmt.Sprintf("%q is a checkbox, use SetChecked", name)}
	}
	return all[0].SetValue(value)
}

// FormValue is one name/value pair of a submission, in document
// order. Submissions are ordered multimaps, so this is a slice of
// pairs rather than a url.Values.
type FormValue struct {
	Name  string
	Value string
}

// skippedTypes never contribute to form data here; submit buttons
// would need a designated-button notion this package does not have.
var skippedTypes = map[string]bool{
	"button": true, "submit": true, "image": true, "reset": true,
	"file": true,
}

// FormData collects the pairs a browser would submit.
func (f *Form) FormData() ([]FormValue, error) {
	var out []FormValue
	for _, in := range f.Inputs(InputQuery{}) {
		name := in.Name()
		if name == "" || !in.Enabled() {
			continue
		}
		typ := in.Type()
		if skippedTypes[typ] {
			continue
		}
		switch typ {
		case "radio", "checkbox":
			if !in.Checked() {
				continue
			}
			v, err := in.Value()
			if err != nil {
				return nil, err
			}
			out = append(out, FormValue{Name: name, Value: v})
		case "select":
			for _, o := range in.Options() {
				if o.Selected() {
					out = append(out, FormValue{Name: name, Value: o.Value()})
				}
			}
		default:
			v, err := in.Value()
			if err != nil {
				return nil, err
			}
			out = append(out, FormValue{Name: name, Value: v})
		}
	}
	return out, nil
}

// encodeFormData urlencodes pairs in the given character set.
// Unencodable runes degrade the way browsers degrade them, to
// replacement text rather than an error.
func encodeFormData(pairs []FormValue, charsetName string) (string, error) {
	enc, err := htmlindex.Get(charsetName)
	if err != nil {
		enc, _ = htmlindex.Get("utf-8")
	}
	encoder := encoding.ReplaceUnsupported(enc.NewEncoder())
	var b strings.Builder
	for i, kv := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		n, err := encoder.String(kv.Name)
		if err != nil {
			return "", err
		}
		v, err := encoder.String(kv.Value)
		if err != nil {
			return "", err
		}
		b.WriteString(url.QueryEscape(n))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(v))
	}
	return b.String(), nil
}

// Submit sends the form and returns the resulting page. Only GET and
// POST with urlencoded data are supported.
func (f *Form) Submit() (*Page, error) {
	if f.Enctype() != "application/x-www-form-urlencoded" {
		return nil, &UnsupportedFormError{Reason: "enctype " + f.Enctype()}
	}
	data, err := f.FormData()
	if err != nil {
		return nil, err
	}
	encoded, err := encodeFormData(data, f.AcceptCharset())
	if err != nil {
		return nil, err
	}
	action := f.Action()
	switch f.Method() {
	case http.MethodGet:
		target := *action
		target.RawQuery = encoded
		return f.Page.OpenWith(target.String(), OpenOptions{})
	case http.MethodPost:
		return f.Page.OpenWith(action.String(), OpenOptions{
			Data:        []byte(encoded),
			ContentType: "application/x-www-form-urlencoded",
		})
	default:
		return nil, &UnsupportedFormError{Reason: "method " + f.Method()}
	}
}

// Input wraps an input, select or textarea element.
type Input struct {
	Element *htmltree.Element
}

// Name returns the input's name attribute.
func (in *Input) Name() string {
	return in.Element.Attr("name")
}

// SetName renames the input.
func (in *Input) SetName(name string) {
	in.Element.SetAttr("name", name)
}

// ID returns the input's id attribute.
func (in *Input) ID() string {
	return in.Element.Attr("id")
}

// Type normalizes the input's kind: "select" and "textarea" for those
// elements, otherwise the type attribute lowered and trimmed,
// defaulting to "text".
func (in *Input) Type() string {
	switch strings.ToLower(in.Element.Tag) {
	case "select":
		return "select"
	case "textarea":
		return "textarea"
	}
	t := strings.ToLower(strings.TrimSpace(in.Element.Attr("type")))
	if t == "" {
		return "text"
	}
	return t
}

// Enabled reports the absence of the disabled attribute.
func (in *Input) Enabled() bool {
	return !in.Element.HasAttr("disabled")
}

// SetEnabled toggles the disabled attribute.
func (in *Input) SetEnabled(enabled bool) {
	if enabled {
		in.Element.DelAttr("disabled")
	} else {
		in.Element.SetAttr("disabled", "disabled")
	}
}

// Checked reports the checked attribute, meaningful for radio buttons
// and checkboxes.
func (in *Input) Checked() bool {
	return in.Element.HasAttr("checked")
}

// SetChecked toggles the checked attribute.
func (in *Input) SetChecked(checked bool) {
	if checked {
		in.Element.SetAttr("checked", "checked")
	} else {
		in.Element.DelAttr("checked")
	}
}

// Value reads the input's current value. Selects yield the value of
// their single selected option, "" when none is selected, and an
// error when several are. Radio buttons and checkboxes default to
// "on" like browsers do.
func (in *Input) Value() (string, error) {
	switch in.Type() {
	case "select":
		var selected []*Option
		for _, o := range in.Options() {
			if o.Selected() {
				selected = append(selected, o)
			}
		}
		switch len(selected) {
		case 0:
			return "", nil
		case 1:
			return selected[0].Value(), nil
		default:
			return "", &UnsupportedFormError{
				Reason: fmt.Sprintf("select %q has several selected options", in.Name()),
			}
		}
	case "textarea":
		return in.Element.Text, nil
	case "radio", "checkbox":
		if in.Element.HasAttr("value") {
			return in.Element.Attr("value"), nil
		}
		return "on", nil
	default:
		return in.Element.Attr("value"), nil
	}
}

// SetValue writes the input's value. For selects the option carrying
// the value becomes the only selected one; an unknown value is an
// InvalidOptionError.
func (in *Input) SetValue(value string) error {
	switch in.Type() {
	case "select":
		var target *Option
		for _, o := range in.Options() {
			if o.Value() == value {
				target = o
				break
			}
		}
		if target == nil {
			return &InvalidOptionError{Name: in.Name(), Value: value}
		}
		for _, o := range in.Options() {
			o.SetSelected(o == target)
		}
		return nil
	case "textarea":
		in.Element.Text = value
		return nil
	default:
		in.Element.SetAttr("value", value)
		return nil
	}
}

// Options lists a select's options in document order; empty for other
// inputs.
func (in *Input) Options() []*Option {
	if in.Type() != "select" {
		return nil
	}
	var out []*Option
	for el := range in.Element.Iter("option") {
		out = append(out, &Option{Element: el})
	}
	return out
}

// Option is one choice inside a select element.
type Option struct {
	Element *htmltree.Element
}

// Value returns the submitted value: the value attribute when
// present, else the option's text.
func (o *Option) Value() string {
	if o.Element.HasAttr("value") {
		return o.Element.Attr("value")
	}
	return o.Element.TextContent()
}

// Text returns the visible option text.
func (o *Option) Text() string {
	return o.Element.TextContent()
}

// Selected reports the selected attribute.
func (o *Option) Selected() bool {
	return o.Element.HasAttr("selected")
}

// SetSelected toggles the selected attribute.
func (o *Option) SetSelected(selected bool) {
	if selected {
		o.Element.SetAttr("selected", "selected")
	} else {
		o.Element.DelAttr("selected")
	}
}
