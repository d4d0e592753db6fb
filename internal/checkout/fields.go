package checkout

import (
	"fmt"
	"github.com/sebuszqo/PaymentWidget/internal/catalog"
	"regexp"
	"strings"
)

const (
	FieldAccount = "account"
	FieldAmount  = "amount"

	accountPattern = `.*`
	amountPattern  = `^[0-9]+(\.[0-9]{1,2})?$`
)

// Field describes one input of the checkout form.
type Field struct {
	Name        string
	Description string
	Pattern     string
	re          *regexp.Regexp
}

func newField(name, description, pattern string) Field {
	f := Field{Name: name, Description: description, Pattern: pattern}
	// A pattern the engine cannot compile only enforces presence.
	if re, err := regexp.Compile(pattern); err == nil {
		f.re = re
	}
	return f
}

func (f Field) matches(value string) bool {
	return f.re == nil || f.re.MatchString(value)
}

// BuildFields returns the service's additional parameters followed by the
// fixed account and amount fields. Duplicate names keep their first
// definition.
func BuildFields(service catalog.Service) []Field {
	fields := make([]Field, 0, len(service.AdditionalParameters)+2)
	seen := make(map[string]bool, len(service.AdditionalParameters)+2)

	add := func(f Field) {
		if f.Name == "" || seen[f.Name] {
			return
		}
		seen[f.Name] = true
		fields = append(fields, f)
	}

	for _, p := range service.AdditionalParameters {
		if p.Name == FieldAccount || p.Name == FieldAmount {
			continue
		}
		add(newField(p.Name, p.Description, p.Regex))
	}
	add(newField(FieldAccount, "Account", accountPattern))
	add(newField(FieldAmount, "Amount", amountPattern))

	return fields
}

// Validate checks every field against its pattern. Empty values are
// reported as required.
func Validate(fields []Field, values map[string]string) ValidationErrors {
	errs := ValidationErrors{}
	for _, f := range fields {
		value := values[f.Name]
		switch {
		case strings.TrimSpace(value) == "":
			errs.Add(f.Name, fmt.Sprintf("%s is required", f.Description))
		case !f.matches(value):
			errs.Add(f.Name, fmt.Sprintf("invalid format for %s", f.Description))
		}
	}
	return errs
}

func findField(fields []Field, name string) (Field, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
