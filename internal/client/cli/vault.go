package cli

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/srpkeeper/internal/common"
	"github.com/dmitrijs2005/srpkeeper/internal/cryptox"
	"github.com/spf13/cobra"
)

// Sealed text is printed as "<nonce>:<data>", both base64.
const sealedSep = ":"

func (a *App) unlock(cmd *cobra.Command) (*cryptox.Vault, error) {
	password, err := getPassword(a.out, "Password")
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(password)

	return a.authService.Unlock(cmd.Context(), password)
}

func (a *App) encryptCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "encrypt [text]",
		Short: "Encrypt text with the key of the cached login",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var text string
			if len(args) > 0 {
				text = args[0]
			} else {
				var err error
				if text, err = getSimpleText(a.reader, "Text to encrypt", a.out); err != nil {
					return err
				}
			}

			vault, err := a.unlock(cmd)
			if err != nil {
				return err
			}
			sealed, err := vault.EncryptText(text)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, sealed.Nonce+sealedSep+sealed.Data)
			return nil
		},
	}
}

func (a *App) decryptCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt <nonce:data>",
		Short: "Decrypt text produced by encrypt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nonce, data, ok := strings.Cut(args[0], sealedSep)
			if !ok {
				return fmt.Errorf("expected <nonce>%s<data>", sealedSep)
			}

			vault, err := a.unlock(cmd)
			if err != nil {
				return err
			}
			text, err := vault.DecryptText(cryptox.Sealed{Data: data, Nonce: nonce})
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, text)
			return nil
		},
	}
}
