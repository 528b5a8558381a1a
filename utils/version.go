package utils

import "fmt"

// Version describes the running build, populated at link time via main.
type Version struct {
	Number    string `json:"number"`
	Branch    string `json:"branch"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	Arch      string `json:"arch"`
}

var current = Version{
	Number:    "dev",
	Branch:    "unknown",
	Commit:    "unknown",
	BuildDate: "unknown",
	Arch:      "unknown",
}

// SetVersion populates the package-level version variables.
func SetVersion(number, branch, commit, buildDate, arch string) {
	current = Version{
		Number:    number,
		Branch:    branch,
		Commit:    commit,
		BuildDate: buildDate,
		Arch:      arch,
	}
}

// GetVersion returns the version information for the service.
func GetVersion() Version {
	return current
}

// String renders the version as a single display line.
func (v Version) String() string {
	return fmt.Sprintf("%s (%s@%s, %s, %s)", v.Number, v.Branch, v.Commit, v.BuildDate, v.Arch)
}
