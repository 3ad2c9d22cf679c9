/*
Copyright © 2026 Anton Brekhov <anton@abrekhov.ru>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"

	"github.com/abrekhov/edunet/pkg/signal"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

const roleHost = "Host a class"

// hostCmd creates the offer
var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Start a class and print the offer ticket",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHost(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(hostCmd)
}

// runHost returns errors instead of exiting so the deferred hang-up
// always restores the terminal and closes the transport.
func runHost(ctx context.Context) error {
	c, err := newClassroom(loadConfig(), "host")
	if err != nil {
		return err
	}
	defer c.hangUp()

	spinner, _ := pterm.DefaultSpinner.Start("Gathering network candidates")
	offer, err := c.engine.CreateInitialOffer(ctx)
	if err != nil {
		spinner.Fail(err.Error())
		return err
	}
	_ = spinner.Stop()
	if err := c.showTicket("Send this offer ticket to the student", offer); err != nil {
		return err
	}

	for {
		raw, err := c.readTicket("Paste the answer ticket: ")
		if abortable(err) {
			return nil
		}
		if err != nil {
			return err
		}

		answer, err := signal.DecodeTicket(raw)
		if err == nil {
			err = answer.Expect(signal.KindAnswer)
		}
		if err != nil {
			pterm.Error.Printfln("%v, paste it again", err)
			continue
		}
		if !c.verifyCode(answer) {
			continue
		}
		if err := c.engine.AcceptAnswerTicket(answer); err != nil {
			return err
		}
		break
	}
	pterm.Info.Println("Connecting...")
	c.run(ctx)
	return nil
}
