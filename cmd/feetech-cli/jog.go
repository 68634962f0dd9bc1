package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/feetech-drivers/servobus/feetech"
)

var jogStep float64

var jogCmd = &cobra.Command{
	Use:   "jog <id>",
	Short: "Jog a servo's goal_position interactively with the arrow keys",
	Long: `Puts the terminal in raw mode and reads single keystrokes:
  left/right arrow  step goal_position by --step radians
  q                 quit`,
	Args: cobra.ExactArgs(1),
	RunE: runJog,
}

func init() {
	rootCmd.AddCommand(jogCmd)
	jogCmd.Flags().Float64Var(&jogStep, "step", 0.05, "radians per keypress")
}

func runJog(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid id %q: %w", args[0], err)
	}

	bus, err := openBus()
	if err != nil {
		return err
	}
	defer bus.Close()

	ctx := context.Background()
	servo := feetech.NewServo(bus, id)
	if err := servo.Enable(ctx); err != nil {
		return err
	}
	defer servo.Disable(ctx)

	pos, err := servo.Position(ctx)
	if err != nil {
		return err
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to enter raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	fmt.Println("jogging: left/right arrows to move, q to quit")
	buf := make([]byte, 3)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil || n == 0 {
			return err
		}

		switch {
		case buf[0] == 'q':
			return nil
		case n == 3 && buf[0] == 0x1b && buf[1] == '[' && buf[2] == 'C': // right arrow
			pos += jogStep
		case n == 3 && buf[0] == 0x1b && buf[1] == '[' && buf[2] == 'D': // left arrow
			pos -= jogStep
		default:
			continue
		}

		if err := servo.SetPosition(ctx, pos); err != nil {
			return err
		}
	}
}
