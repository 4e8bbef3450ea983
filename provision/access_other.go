//go:build !unix

package provision

// executable is a no-op where permissions carry no execute bit.
func executable(string) error {
	return nil
}
