package cli

import (
	"context"
	"crypto/rand"
	"strconv"

	"github.com/hxhippy/pwgen/clierror"
	"github.com/hxhippy/pwgen/clipboard"
	"github.com/hxhippy/pwgen/generator"
	"github.com/hxhippy/pwgen/genericclioptions"

	"github.com/spf13/cobra"
)

// GenerateOptions holds the flags for the 'generate' command: either a
// random password built from enabled character classes, or a passphrase
// assembled from the built-in word list.
type GenerateOptions struct {
	*genericclioptions.StdioOptions

	length           int
	noSymbols        bool
	noLowercase      bool
	noUppercase      bool
	noNumbers        bool
	excludeAmbiguous bool
	escape           bool
	copy             bool

	passphrase bool
	words      int
	separator  string
	capitalize bool
}

var _ genericclioptions.CmdOptions = &GenerateOptions{}

func NewGenerateOptions(stdio *genericclioptions.StdioOptions) *GenerateOptions {
	return &GenerateOptions{StdioOptions: stdio}
}

func (*GenerateOptions) Complete() error { return nil }

func (*GenerateOptions) Validate() error { return nil }

func (o *GenerateOptions) Run(context.Context, ...string) error {
	var (
		s   string
		err error
	)

	if o.passphrase {
		s, err = generator.Passphrase(rand.Reader, o.words, o.separator, o.capitalize)
	} else {
		s, err = generator.Generate(rand.Reader, generator.Config{
			Length:           o.length,
			Uppercase:        generator.ClassConfig{Enabled: !o.noUppercase},
			Lowercase:        generator.ClassConfig{Enabled: !o.noLowercase},
			Digits:           generator.ClassConfig{Enabled: !o.noNumbers},
			Symbols:          generator.ClassConfig{Enabled: !o.noSymbols},
			ExcludeAmbiguous: o.excludeAmbiguous,
		})
	}

	if err != nil {
		return err
	}

	if o.escape {
		s = strconv.Quote(s)
	}

	if o.copy {
		o.Debugf("copying generated value to clipboard\n")
		return clipboard.Copy(s)
	}

	o.Printf("%s\n", s)

	return nil
}

// NewCmdGenerate creates the 'generate' cobra command.
func NewCmdGenerate(defaults *RootOptions) *cobra.Command {
	o := NewGenerateOptions(defaults.StdioOptions)

	cmd := &cobra.Command{
		Use:     "generate",
		Aliases: []string{"gen", "rand"},
		Short:   "Generate a random password or passphrase",
		Long: `Generate a random password drawn from the enabled character classes,
or, with --passphrase, a passphrase assembled from a built-in word list.

All character classes are enabled by default; use the --no-* flags to disable one.`,
		Example: `  # A 24-character password with every class enabled
  pwgen generate --length 24

  # A password with no symbols, copied to the clipboard
  pwgen generate --no-symbols --copy-clipboard

  # A 5-word passphrase
  pwgen generate --passphrase --words 5`,
		Run: func(cmd *cobra.Command, _ []string) {
			if !cmd.Flags().Changed("length") {
				o.length = defaults.configOptions.Resolved().GeneratorLength
			}

			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}

	cmd.Flags().IntVarP(&o.length, "length", "n", defaultGeneratedPasswordLength, "password length")
	cmd.Flags().BoolVar(&o.noSymbols, "no-symbols", false, "disable symbol characters")
	cmd.Flags().BoolVar(&o.noLowercase, "no-lowercase", false, "disable lowercase letters")
	cmd.Flags().BoolVar(&o.noUppercase, "no-uppercase", false, "disable uppercase letters")
	cmd.Flags().BoolVar(&o.noNumbers, "no-numbers", false, "disable digits")
	cmd.Flags().BoolVar(&o.excludeAmbiguous, "exclude-ambiguous", false, "exclude visually ambiguous glyphs")
	cmd.Flags().BoolVar(&o.escape, "escape", false, "print the output as a double-quoted, escaped Go string literal")
	cmd.Flags().BoolVarP(&o.copy, "copy-clipboard", "c", false, "copy the generated value to the clipboard")

	cmd.Flags().BoolVar(&o.passphrase, "passphrase", false, "generate a passphrase instead of a password")
	cmd.Flags().IntVarP(&o.words, "words", "w", 4, "number of words in the passphrase")
	cmd.Flags().StringVar(&o.separator, "separator", "-", "passphrase word separator")
	cmd.Flags().BoolVar(&o.capitalize, "capitalize", false, "capitalize the first letter of each passphrase word")

	return cmd
}
