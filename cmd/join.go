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

const roleJoin = "Join a class"

// joinCmd answers a pasted offer
var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Join a class from an offer ticket",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJoin(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(joinCmd)
}

func runJoin(ctx context.Context) error {
	c, err := newClassroom(loadConfig(), "join")
	if err != nil {
		return err
	}
	defer c.hangUp()

	for {
		raw, err := c.readTicket("Paste the offer ticket: ")
		if abortable(err) {
			return nil
		}
		if err != nil {
			return err
		}

		offer, err := signal.DecodeTicket(raw)
		if err == nil {
			err = offer.Expect(signal.KindOffer)
		}
		if err != nil {
			pterm.Error.Printfln("%v, paste it again", err)
			continue
		}
		if !c.verifyCode(offer) {
			continue
		}

		spinner, _ := pterm.DefaultSpinner.Start("Preparing the answer")
		answer, err := c.engine.AcceptOfferTicket(ctx, offer)
		if err != nil {
			spinner.Fail(err.Error())
			return err
		}
		_ = spinner.Stop()
		if err := c.showTicket("Send this answer ticket back to the host", answer); err != nil {
			return err
		}
		break
	}
	c.run(ctx)
	return nil
}
