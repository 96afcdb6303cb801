package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedFile describes the YAML document consumed by `membergate db seed`:
// an initial admin, the current passphrase, and starter categories and
// contents.
type SeedFile struct {
	Admin      SeedAdmin      `yaml:"admin"`
	Passphrase SeedPassphrase `yaml:"passphrase"`
	Categories []SeedCategory `yaml:"categories"`
	Contents   []SeedContent  `yaml:"contents"`
}

// SeedAdmin is the initial admin account. The password is hashed before
// storage.
type SeedAdmin struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// SeedPassphrase is the member passphrase to register. Month and Year
// default to the current month when zero.
type SeedPassphrase struct {
	Phrase string `yaml:"phrase"`
	Month  int    `yaml:"month"`
	Year   int    `yaml:"year"`
}

// SeedCategory is a starter category.
type SeedCategory struct {
	Name  string `yaml:"name"`
	Slug  string `yaml:"slug"`
	Order int    `yaml:"order"`
}

// SeedContent is a starter content item. Category references a seeded
// category by slug.
type SeedContent struct {
	Title          string `yaml:"title"`
	Type           string `yaml:"type"` // VIDEO or ARTICLE
	YouTubeURL     string `yaml:"youtube_url"`
	ArticleContent string `yaml:"article_content"`
	Thumbnail      string `yaml:"thumbnail"`
	Category       string `yaml:"category"`
	Pinned         bool   `yaml:"pinned"`
}

// LoadSeedFile parses a seed YAML file.
func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &seed, nil
}
