/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"buildify/internal/config"
	"buildify/internal/identity"
)

var loginCmd = &cobra.Command{
	Use:   "login <user-id>",
	Short: "Sign in and store the session token in the OS keyring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		be, err := openBackend(cmd.Context())
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer be.Close()
		sess := identity.NewSession(newAuthority(), config.Tokens(), be)
		u, err := sess.SignIn(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("sign in: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", u.ID)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess := identity.NewSession(newAuthority(), config.Tokens(), nil)
		if err := sess.SignOut(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		u, err := currentUser()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (expires %s)\n", u.ID, u.ExpiresAt.Format("2006-01-02 15:04"))
		return nil
	},
}

// currentUser restores the keyring session.
func currentUser() (*identity.User, error) {
	u, err := identity.NewSession(newAuthority(), config.Tokens(), nil).Require()
	if errors.Is(err, identity.ErrSignedOut) {
		return nil, errors.New("not signed in; run: buildify login <user-id>")
	}
	return u, err
}
