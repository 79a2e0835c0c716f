package scaffold

import (
	"bytes"
	"strconv"
	"strings"
	"text/template"

	"github.com/vango-dev/uiforge/internal/errors"
	"github.com/vango-dev/uiforge/internal/ident"
)

// componentData is the template input for one component.
type componentData struct {
	ID      string
	Tag     string
	Class   string
	Variant string
	Labels  []string
	Wrapped []wrappedData
}

type wrappedData struct {
	ID     string
	Tag    string
	Class  string
	Module string
	Label  string
}

var componentTemplates = template.Must(template.New("scaffold").Parse(`
{{- define "source" -}}
import { Component, input } from '@angular/core';
import { CommonModule } from '@angular/common';

export type {{.Variant}} = {{range $i, $l := .Labels}}{{if $i}} | {{end}}'{{$l}}'{{end}};

@Component({
  selector: '{{.Tag}}',
  imports: [CommonModule],
  templateUrl: './{{.ID}}.component.html',
  styleUrl: './{{.ID}}.component.scss'
})
export class {{.Class}} {
  variant = input<{{.Variant}}>('1');
  disabled = input<boolean>(false);
}
{{end}}

{{- define "markup" -}}
<div class="{{.ID}}">
  <p>{{.ID}} works!</p>
</div>
{{end}}

{{- define "style" -}}
:host {
  display: block;
}
{{end}}

{{- define "wrapper-source" -}}
import { Component, input } from '@angular/core';
import { CommonModule } from '@angular/common';
{{- range .Wrapped}}
import { {{.Class}} } from '../{{.Module}}';
{{- end}}

export type {{.Variant}} = {{range $i, $l := .Labels}}{{if $i}} | {{end}}'{{$l}}'{{end}};

@Component({
  selector: '{{.Tag}}',
  imports: [CommonModule{{range .Wrapped}}, {{.Class}}{{end}}],
  templateUrl: './{{.ID}}.component.html',
  styleUrl: './{{.ID}}.component.scss'
})
export class {{.Class}} {
  variant = input<{{.Variant}}>('1');
  disabled = input<boolean>(false);
}
{{end}}

{{- define "wrapper-markup" -}}
@switch (variant()) {
{{- range .Wrapped}}
  @case ('{{.Label}}') {
    <{{.Tag}}></{{.Tag}}>
  }
{{- end}}
}
{{end}}
`))

func newComponentData(id string) componentData {
	class := ident.ClassName(id)
	return componentData{
		ID:      id,
		Tag:     ident.TagName(id),
		Class:   class,
		Variant: strings.TrimSuffix(class, ident.ClassSuffix) + "Variant",
		Labels:  []string{"1"},
	}
}

func render(name string, data componentData) (string, error) {
	var buf bytes.Buffer
	if err := componentTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", errors.New("E211").
			WithStep(errors.StepScaffold).
			WithDetail("template " + name + " failed for " + data.ID).
			Wrap(err)
	}
	return buf.String(), nil
}

// Labels returns the default variant labels "1" through "n".
func Labels(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strconv.Itoa(i + 1)
	}
	return out
}

func wrapperData(id string, wraps, variants []string) (componentData, error) {
	if err := ident.Validate(id); err != nil {
		return componentData{}, err
	}
	if len(wraps) < 2 {
		return componentData{}, errors.New("E201").
			WithDetail(id + " wraps " + strconv.Itoa(len(wraps)) + " component(s)")
	}
	if len(variants) == 0 {
		variants = Labels(len(wraps))
	}
	if len(variants) != len(wraps) {
		return componentData{}, errors.New("E201").
			WithDetail("got " + strconv.Itoa(len(variants)) + " variant labels for " +
				strconv.Itoa(len(wraps)) + " wrapped components")
	}

	data := newComponentData(id)
	data.Labels = variants
	for i, w := range wraps {
		if err := ident.Validate(w); err != nil {
			return componentData{}, err
		}
		data.Wrapped = append(data.Wrapped, wrappedData{
			ID:     w,
			Tag:    ident.TagName(w),
			Class:  ident.ClassName(w),
			Module: ident.ImportModule(w),
			Label:  variants[i],
		})
	}
	return data, nil
}

// WrapperSource returns the source of super component id switching between
// wraps. variants labels each wrapped component; nil means "1" to "n".
func WrapperSource(id string, wraps, variants []string) (string, error) {
	data, err := wrapperData(id, wraps, variants)
	if err != nil {
		return "", err
	}
	return render("wrapper-source", data)
}

// WrapperMarkup returns the markup of super component id: one case per
// wrapped component, selected by the variant input.
func WrapperMarkup(id string, wraps, variants []string) (string, error) {
	data, err := wrapperData(id, wraps, variants)
	if err != nil {
		return "", err
	}
	return render("wrapper-markup", data)
}
