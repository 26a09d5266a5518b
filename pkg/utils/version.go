// Package utils provides bespoke, one off utils that don't make sense to be
// their own package
package utils

var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)

// UserAgent identifies lincode in outgoing HTTP requests.
func UserAgent() string {
	return "lincode/" + Version
}
