package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/fclairamb/commonkit/internal/apperrors"
	"github.com/fclairamb/commonkit/internal/mathutil"
	"github.com/fclairamb/commonkit/internal/textutil"
	"github.com/fclairamb/commonkit/internal/units"
)

const defaultPowerDigits = 2

func imdbCommand() *cli.Command {
	return &cli.Command{
		Name:  "imdb",
		Usage: "Look up titles on IMDb",
		Commands: []*cli.Command{
			{
				Name:      "id",
				Usage:     "Print the ID of the first matching title",
				ArgsUsage: "<name>",
				Action:    measured("imdb id", runIMDBID),
			},
			{
				Name:      "info",
				Usage:     "Show the first matching movie, series or game",
				ArgsUsage: "<name>",
				Flags:     []cli.Flag{formatFlag()},
				Action:    measured("imdb info", runIMDBInfo),
			},
			{
				Name:      "lookup",
				Usage:     "Print the IDs of every matching title",
				ArgsUsage: "<name>",
				Action:    measured("imdb lookup", runIMDBLookUp),
			},
			{
				Name:      "image",
				Usage:     "Print the image URL of a title",
				ArgsUsage: "<title-id>",
				Action:    measured("imdb image", runIMDBImage),
			},
		},
	}
}

func runIMDBID(ctx context.Context, cmd *cli.Command) error {
	name, err := joinedArgs(cmd, "<name>")
	if err != nil {
		return err
	}

	client, err := newIMDBClient(ctx)
	if err != nil {
		return err
	}

	id, err := client.FirstTitleID(ctx, name)
	if err != nil {
		return err
	}

	displayLines(output(cmd), id)
	return nil
}

func runIMDBInfo(ctx context.Context, cmd *cli.Command) error {
	name, err := joinedArgs(cmd, "<name>")
	if err != nil {
		return err
	}

	client, err := newIMDBClient(ctx)
	if err != nil {
		return err
	}

	title, err := client.TitleInfo(ctx, name)
	if err != nil {
		return err
	}

	if format := cmd.String("format"); format != formatJSON {
		return printDocument(output(cmd), title, format)
	}
	displayTitle(output(cmd), title)
	return nil
}

func runIMDBLookUp(ctx context.Context, cmd *cli.Command) error {
	name, err := joinedArgs(cmd, "<name>")
	if err != nil {
		return err
	}

	client, err := newIMDBClient(ctx)
	if err != nil {
		return err
	}

	ids, err := client.LookUp(ctx, name)
	if err != nil {
		return err
	}

	displayLines(output(cmd), ids...)
	return nil
}

func runIMDBImage(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, "<title-id>"); err != nil {
		return err
	}

	client, err := newIMDBClient(ctx)
	if err != nil {
		return err
	}

	imageURL, err := client.TitleImage(ctx, cmd.Args().First())
	if err != nil {
		return err
	}

	displayLines(output(cmd), imageURL)
	return nil
}

func mathCommand() *cli.Command {
	return &cli.Command{
		Name:  "math",
		Usage: "Number checks",
		Commands: []*cli.Command{
			{
				Name:      "prime",
				Usage:     "Tell whether each number is prime",
				ArgsUsage: "<n[,n...]>",
				Action:    measured("math prime", numberCheck(mathutil.IsPrime, "prime")),
			},
			{
				Name:      "almost-prime",
				Usage:     "Tell whether each number is the product of two primes",
				ArgsUsage: "<n[,n...]>",
				Action:    measured("math almost-prime", numberCheck(mathutil.IsAlmostPrime, "almost prime")),
			},
			{
				Name:      "control-digit",
				Usage:     "Compute the control digit of an eight digit ID number",
				ArgsUsage: "<id>",
				Action:    measured("math control-digit", runControlDigit),
			},
			{
				Name:      "audit-id",
				Usage:     "Check the control digit of a nine digit ID number",
				ArgsUsage: "<id>",
				Action:    measured("math audit-id", runAuditID),
			},
		},
	}
}

// numberCheck builds an action printing "<n>: <label>" or "<n>: not <label>"
// for every number of a comma-separated list.
func numberCheck(check func(int64) bool, label string) cli.ActionFunc {
	return func(_ context.Context, cmd *cli.Command) error {
		raw, err := joinedArgs(cmd, "<n[,n...]>")
		if err != nil {
			return err
		}

		numbers, err := textutil.ParseList(raw, func(s string) (int64, error) {
			return strconv.ParseInt(s, 10, 64)
		})
		if err != nil {
			return err
		}

		lines := make([]string, 0, len(numbers))
		for _, n := range numbers {
			verdict := label
			if !check(n) {
				verdict = "not " + label
			}
			lines = append(lines, fmt.Sprintf("%d: %s", n, verdict))
		}

		displayLines(output(cmd), lines...)
		return nil
	}
}

func runControlDigit(_ context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, "<id>"); err != nil {
		return err
	}

	digit, err := mathutil.ControlDigit(strings.TrimSpace(cmd.Args().First()))
	if err != nil {
		return err
	}

	displayLines(output(cmd), strconv.Itoa(digit))
	return nil
}

func runAuditID(_ context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, "<id>"); err != nil {
		return err
	}

	id := strings.TrimSpace(cmd.Args().First())
	if !mathutil.AuditID(id) {
		return fmt.Errorf("%w: %q fails the control digit check", apperrors.ErrInvalidIDNumber, id)
	}

	displayLines(output(cmd), id+": valid")
	return nil
}

func convertCommand() *cli.Command {
	return &cli.Command{
		Name:  "convert",
		Usage: "Unit and number formatting",
		Commands: []*cli.Command{
			{
				Name:      "bytes",
				Usage:     "Convert a byte amount (picks the unit when --to is omitted)",
				ArgsUsage: "<value>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Usage: "Unit of the value: B, KB, MB, GB, TB or PB", Value: "B"},
					&cli.StringFlag{Name: "to", Usage: "Target unit"},
				},
				Action: measured("convert bytes", runConvertBytes),
			},
			{
				Name:      "duration",
				Usage:     "Convert a duration between seconds, minutes, hours, days and weeks",
				ArgsUsage: "<value>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Usage: "Unit of the value", Value: string(units.Seconds)},
					&cli.StringFlag{Name: "to", Usage: "Target unit", Value: string(units.Minutes)},
				},
				Action: measured("convert duration", runConvertDuration),
			},
			{
				Name:      "commas",
				Usage:     "Add thousands separators to a number",
				ArgsUsage: "<number>",
				Action:    measured("convert commas", runConvertCommas),
			},
			{
				Name:      "power",
				Usage:     "Show a long integer as d*10^e",
				ArgsUsage: "<number>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "max-digits",
						Usage: "Numbers with at most this many digits are printed as is",
						Value: defaultPowerDigits,
					},
				},
				Action: measured("convert power", runConvertPower),
			},
		},
	}
}

func parseFloatArg(cmd *cli.Command, name string) (float64, error) {
	if err := requireArgs(cmd, name); err != nil {
		return 0, err
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(cmd.Args().First()), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return value, nil
}

func runConvertBytes(_ context.Context, cmd *cli.Command) error {
	value, err := parseFloatArg(cmd, "<value>")
	if err != nil {
		return err
	}

	from, err := units.ParseByteUnit(cmd.String("from"))
	if err != nil {
		return err
	}

	text, err := units.FormatBytes(value, from, cmd.String("to"))
	if err != nil {
		return err
	}

	displayLines(output(cmd), text)
	return nil
}

func runConvertDuration(_ context.Context, cmd *cli.Command) error {
	value, err := parseFloatArg(cmd, "<value>")
	if err != nil {
		return err
	}

	from, err := units.ParseDurationUnit(cmd.String("from"))
	if err != nil {
		return err
	}
	to, err := units.ParseDurationUnit(cmd.String("to"))
	if err != nil {
		return err
	}

	displayLines(output(cmd), units.DescribeDuration(value, from, to))
	return nil
}

func runConvertCommas(_ context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, "<number>"); err != nil {
		return err
	}

	raw := strings.TrimSpace(cmd.Args().First())
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		displayLines(output(cmd), units.AddCommas(n))
		return nil
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid <number>: %w", err)
	}

	displayLines(output(cmd), units.AddCommasFloat(f))
	return nil
}

func runConvertPower(_ context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, "<number>"); err != nil {
		return err
	}

	n, err := strconv.ParseInt(strings.TrimSpace(cmd.Args().First()), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid <number>: %w", err)
	}

	displayLines(output(cmd), units.TenthPower(n, cmd.Int("max-digits")).Text)
	return nil
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Input validation",
		Commands: []*cli.Command{
			{
				Name:      "email",
				Usage:     "Check that each address looks like name@domain.tld",
				ArgsUsage: "<address[,address...]>",
				Action:    measured("validate email", runValidateEmail),
			},
		},
	}
}

func runValidateEmail(_ context.Context, cmd *cli.Command) error {
	raw, err := joinedArgs(cmd, "<address[,address...]>")
	if err != nil {
		return err
	}

	addresses, err := textutil.ParseList(raw, func(s string) (string, error) { return s, nil })
	if err != nil {
		return err
	}

	lines := make([]string, 0, len(addresses))
	for _, address := range addresses {
		verdict := "valid"
		if !textutil.IsValidEmail(address) {
			verdict = "invalid"
		}
		lines = append(lines, address+": "+verdict)
	}

	displayLines(output(cmd), lines...)
	return nil
}
