package cli

import (
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"crmgrip/internal/ui"
)

func newHelpPagerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "help-pager",
		Short: "Show the key bindings in a pager",
		Long: `Show the key bindings of the list views in the ov pager. When stdout is
not a terminal the text is printed instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			content := ui.NewHelpRenderer().RenderHelpContentPlain()
			if !isTerminal(cmd.OutOrStdout()) {
				_, err := io.WriteString(cmd.OutOrStdout(), content)
				return err
			}
			return ui.RunPager(strings.NewReader(content))
		},
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
