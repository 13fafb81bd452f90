package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// taskYAML is the on-disk challenge definition format:
//
//	tasks/<dir>/task.yml
//	tasks/<dir>/attachments/... (optional, packaged on download)
type taskYAML struct {
	Name        string `yaml:"name"`
	Category    string `yaml:"category"`
	Description string `yaml:"description"`
	Author      string `yaml:"author"`
	Answer      string `yaml:"answer"`
}

// attachmentsDirName under a task directory holds downloadable files.
const attachmentsDirName = "attachments"

// LoadChallengeDefinitions walks root for task.yml files and parses them into
// challenge definitions. The id is derived from the task name, so renaming a
// task changes its identity while everything else can be edited freely.
func LoadChallengeDefinitions(root string) ([]Challenge, error) {
	var defs []Challenge
	seen := map[string]string{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != "task.yml" {
			return nil
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var doc taskYAML
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if strings.TrimSpace(doc.Name) == "" {
			return fmt.Errorf("%s: name is required", path)
		}
		if doc.Answer == "" {
			return fmt.Errorf("%s: answer is required", path)
		}

		dir := filepath.Dir(path)
		id := ChallengeID(doc.Name)
		if prev, dup := seen[id]; dup {
			return fmt.Errorf("duplicate task name %q (%s and %s)", doc.Name, prev, path)
		}
		seen[id] = path

		defs = append(defs, Challenge{
			ID:            id,
			Name:          doc.Name,
			Category:      doc.Category,
			Description:   doc.Description,
			Author:        doc.Author,
			Answer:        doc.Answer,
			HasAttachment: hasAttachmentDir(dir),
			Dir:           dir,
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("tasks dir %s does not exist", root)
		}
		return nil, err
	}
	return defs, nil
}

func hasAttachmentDir(taskDir string) bool {
	entries, err := os.ReadDir(filepath.Join(taskDir, attachmentsDirName))
	return err == nil && len(entries) > 0
}
