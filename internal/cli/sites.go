package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/billmal071/mangadl/internal/tui"
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List supported sites",
	Long: `List the sites chapters can be downloaded from and the hosts each one
handles. A pattern like *nettruyen* matches any host containing the word.`,
	Run: func(cmd *cobra.Command, args []string) {
		_, resolver := newService(nil, nil)

		fmt.Println(tui.TitleStyle.Render("Supported sites"))
		for _, site := range resolver.Sites() {
			fmt.Printf("  %s %s\n", tui.SiteStyle.Render(fmt.Sprintf("%-12s", site.Name())), tui.DimStyle.Render(strings.Join(site.Hosts(), ", ")))
		}
	},
}
