// Command verify-config checks the JSON files under ~/Dexter/config against
// the service's config types: unknown fields, broken JSON and empty values
// are reported per file.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/EasterCompany/dex-assistant-service/config"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
)

func main() {
	home, err := os.UserHomeDir()
	if err != nil {
		fail("could not determine user home directory: %v", err)
	}
	dir := filepath.Join(home, "Dexter", "config")

	fmt.Printf("%sChecking config files in %s%s\n", colorBlue, dir, colorReset)

	checks := []struct {
		file  string
		model interface{}
	}{
		{"config.json", config.MainConfig{}},
		{"discord.json", config.DiscordConfig{}},
		{"redis.json", config.RedisConfig{}},
		{"assistant.json", config.AssistantConfig{}},
	}

	ok := true
	for _, c := range checks {
		if !verify(filepath.Join(dir, c.file), c.file, c.model) {
			ok = false
		}
	}

	fmt.Println()
	if !ok {
		fail("some config files need attention")
	}
	fmt.Printf("%sall config files look good%s\n", colorGreen, colorReset)
}

func verify(path, name string, model interface{}) bool {
	fmt.Printf("\n%s%s%s\n", colorBlue, name, colorReset)

	content, err := os.ReadFile(path)
	if err != nil {
		report(colorRed, "missing or unreadable: %v", err)
		return false
	}

	// Decode into a fresh instance of the schema type; unknown fields are
	// the most common config mistake and fail loudly here.
	target := reflect.New(reflect.TypeOf(model)).Interface()
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		report(colorRed, "invalid JSON or unknown field: %v", err)
		return false
	}
	report(colorGreen, "valid, all fields recognized")

	if empty := zeroFields(reflect.ValueOf(target).Elem()); len(empty) > 0 {
		report(colorYellow, "unset fields (defaults apply): %v", empty)
	}
	return true
}

func zeroFields(v reflect.Value) []string {
	var names []string
	for i := 0; i < v.NumField(); i++ {
		if v.Field(i).IsZero() {
			names = append(names, v.Type().Field(i).Name)
		}
	}
	return names
}

func report(color, format string, args ...interface{}) {
	fmt.Printf("  %s%s%s\n", color, fmt.Sprintf(format, args...), colorReset)
}

func fail(format string, args ...interface{}) {
	fmt.Printf("%s%s%s\n", colorRed, fmt.Sprintf(format, args...), colorReset)
	os.Exit(1)
}
