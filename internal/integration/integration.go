// Package integration provides embedded shell integration snippets.
package integration

import (
	"bytes"
	_ "embed"
	"fmt"
	"os/exec"
	"path/filepath"
	"text/template"
)

// ZshFzf contains the zsh shell integration script with fzf support.
//
//go:embed zsh-fzf.sh
var ZshFzf string

// Render renders the integration script for binary, using the zsh found in PATH.
func Render(binary string) (string, error) {
	zsh, err := exec.LookPath("zsh")
	if err != nil {
		return "", fmt.Errorf("locating zsh: %w", err)
	}

	return render(filepath.ToSlash(zsh), binary)
}

// render substitutes the zsh path and binary name into the script.
func render(zsh, binary string) (string, error) {
	tmpl, err := template.New("zsh-fzf").Parse(ZshFzf)
	if err != nil {
		return "", fmt.Errorf("parsing integration script: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]any{
		"ZSH":    zsh,
		"Binary": binary,
	}); err != nil {
		return "", fmt.Errorf("rendering integration script: %w", err)
	}

	return buf.String(), nil
}
