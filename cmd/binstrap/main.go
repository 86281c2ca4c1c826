// Command binstrap installs a released application onto the local machine:
// it matches the platform against the release manifest, downloads and
// unpacks the right artifact, places the binaries and registers them on
// the user's PATH.
package main

import "github.com/binstrap/binstrap/cmd/binstrap/cmd"

func main() {
	cmd.Execute()
}
