package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/tigerbot-team/sonarbot/pkg/pca9685"
)

var CLI struct {
	Device   string `help:"I2C bus device." default:"/dev/i2c-1"`
	Prescale uint8  `help:"PCA9685 prescale." default:"3"`
}

func main() {
	kong.Parse(&CLI, kong.Description("Bench test for the motor PWM chip."))

	pwmController, err := pca9685.New(CLI.Device)
	if err != nil {
		fmt.Println("Failed to open PCA9685", err)
		return
	}
	defer pwmController.Close()

	err = pwmController.Configure(CLI.Prescale)
	if err != nil {
		fmt.Println("Failed to configure PCA9685", err)
		return
	}
	fmt.Printf("Carrier %d Hz\n", pca9685.FrequencyHz(CLI.Prescale))

	fmt.Println(
		`Commands:
    p <n> <percent>   # Set duty cycle of a channel

<n>        Channel number 0-15
<percent>  Duty cycle 0-100; 0=fully off, 100=fully on`)

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nFailed to read stdin: ", err)
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 || parts[0] != "p" {
			continue
		}
		if len(parts) < 3 {
			fmt.Println("Not enough parameters")
			continue
		}
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			fmt.Println("Expected int, not ", parts[1])
			continue
		}
		v, err := strconv.Atoi(parts[2])
		if err != nil {
			fmt.Println("Expected int, not ", parts[2])
			continue
		}
		fmt.Printf("Setting channel %d to %d%%\n", n, v)
		if err := pwmController.SetDuty(n, v); err != nil {
			fmt.Println("Failed to write to PCA9685: ", err)
		}
	}
}
