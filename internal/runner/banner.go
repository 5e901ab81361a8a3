package runner

import (
	"github.com/projectdiscovery/gologger"
)

var banner = `
           __                   _         
  ___ __ _/ /  ___  ___  (_)__ ___ 
 (_-</ // / _ \/ _ \/ _ \/ (_-</ -_)
/___/\_,_/_.__/_//_/\___/_/___/\__/ 
`

var version = "v0.0.1"

// showBanner is used to show the banner to the user
func showBanner() {
	gologger.Print().Msgf("%s\n", banner)
	gologger.Print().Msgf("\t\tprojectdiscovery.io\n\n")
}
