package prompt

import (
	"github.com/manifoldco/promptui"
)

// MenuItem is one entry of a Select menu.
type MenuItem struct {
	Label       string
	Value       string
	Description string
}

func menuTemplates(withDetails bool) *promptui.SelectTemplates {
	t := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ .Label | cyan }}",
		Inactive: "  {{ .Label }}",
		Selected: "* {{ .Label | green }}",
	}
	if withDetails {
		t.Details = `{{ .Description | faint }}`
	}
	return t
}

// Select shows items and returns the Value of the chosen one.
func Select(label string, items []MenuItem) (string, error) {
	withDetails := false
	for _, it := range items {
		if it.Description != "" {
			withDetails = true
			break
		}
	}

	s := promptui.Select{
		Label:     label,
		Items:     items,
		Templates: menuTemplates(withDetails),
		Size:      len(items),
	}

	i, _, err := s.Run()
	if err != nil {
		return "", wrapError(err)
	}
	return items[i].Value, nil
}

// SelectString shows plain strings and returns the chosen one.
func SelectString(label string, items []string) (string, error) {
	s := promptui.Select{
		Label: label,
		Items: items,
		Size:  10,
	}
	_, result, err := s.Run()
	return result, wrapError(err)
}
