// Package userdata renders the bootstrap script handed to a freshly
// launched instance. The script is configuration text; only its
// parameter substitution is logic.
package userdata

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed bootstrap.sh.tmpl
var bootstrapTemplate string

var tmpl = template.Must(template.New("bootstrap").Parse(bootstrapTemplate))

// Params are the values substituted into the bootstrap script.
type Params struct {
	Bucket           string
	ProofDir         string
	Region           string
	UserProofsAlways bool
	Mode             string // "build" compiles the prover on boot; "image" pulls the runner image
	AccountID        string // required in image mode for the registry host
	Repository       string // required in image mode
}

// Render produces the bootstrap script for one run.
func Render(p Params) (string, error) {
	if p.Bucket == "" || p.Region == "" {
		return "", fmt.Errorf("userdata: bucket and region are required")
	}
	if p.Mode == "image" && (p.AccountID == "" || p.Repository == "") {
		return "", fmt.Errorf("userdata: image mode requires account id and repository")
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, p); err != nil {
		return "", fmt.Errorf("userdata: render: %w", err)
	}
	return b.String(), nil
}
