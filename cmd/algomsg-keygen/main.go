// Command algomsg-keygen generates a messaging identity and prints its
// 25-word mnemonic along with both public addresses.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/algomesh/algomsg/crypto"
)

func main() {
	var mnemonicIn = flag.String("mnemonic", "", "derive addresses from an existing mnemonic instead of generating a new key")
	flag.Parse()

	if err := run(*mnemonicIn); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(mnemonicIn string) error {
	var (
		key *crypto.PrivateKey
		err error
	)
	if mnemonicIn != "" {
		key, err = crypto.FromMnemonic(mnemonicIn)
	} else {
		key, err = crypto.GenerateKey()
	}
	if err != nil {
		return err
	}

	words, err := key.Mnemonic()
	if err != nil {
		return err
	}

	fmt.Printf("mnemonic:           %s\n", words)
	fmt.Printf("signing address:    %s\n", key.SigningAddress())
	fmt.Printf("encryption address: %s\n", key.EncryptionAddress())
	return nil
}
