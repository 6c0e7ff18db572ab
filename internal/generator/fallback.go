package generator

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"github.com/motia-studio/engine/internal/models"
)

//go:embed skeletons
var skeletonFS embed.FS

// skeletons maps a path relative to skeletons/ to its parsed template.
var skeletons = loadSkeletons()

func loadSkeletons() map[string]*template.Template {
	out := map[string]*template.Template{}
	err := fs.WalkDir(skeletonFS, "skeletons", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		src, err := skeletonFS.ReadFile(path)
		if err != nil {
			return err
		}
		name := strings.TrimPrefix(path, "skeletons/")
		t, err := template.New(name).Parse(string(src))
		if err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		out[name] = t
		return nil
	})
	if err != nil {
		panic("generator: load skeletons: " + err.Error())
	}
	return out
}

type skeletonData struct {
	Description string
	Comment     string
	Ext         string
	Install     string
}

var installCommand = map[models.Language]string{
	models.LanguageTypeScript: "npm install motia",
	models.LanguagePython:     "pip install motia",
	models.LanguageGo:         "go mod tidy",
}

// Fallback returns the deterministic four-file skeleton for language:
// workflow, steps and config sources plus a README.
func Fallback(description string, language models.Language) []models.ProjectFile {
	language = models.ValidateLanguage(string(language))
	data := skeletonData{
		Description: strings.TrimSpace(description),
		Comment:     strings.Join(strings.Fields(description), " "),
		Ext:         language.Extension(),
		Install:     installCommand[language],
	}

	files := make([]models.ProjectFile, 0, 4)
	for _, part := range []string{"workflow", "steps", "config"} {
		files = append(files, models.ProjectFile{
			Path:     fmt.Sprintf("src/%s.%s", part, data.Ext),
			Content:  render(string(language)+"/"+part+".tmpl", data),
			Language: string(language),
		})
	}
	files = append(files, models.ProjectFile{
		Path:     "README.md",
		Content:  render("readme.tmpl", data),
		Language: "markdown",
	})
	return files
}

func render(name string, data skeletonData) string {
	t, ok := skeletons[name]
	if !ok {
		panic("generator: missing skeleton " + name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		panic(fmt.Sprintf("generator: render %s: %v", name, err))
	}
	return buf.String()
}
