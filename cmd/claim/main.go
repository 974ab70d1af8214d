// Command claim requests the airdrop for a wallet from a running server.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"

	"solairdrop/airdrop"
	"solairdrop/storage"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "airdrop server base URL")
	wallet := flag.String("wallet", "", "recipient wallet address")
	status := flag.Bool("status", false, "show the stored claim instead of claiming")
	newWallet := flag.Bool("new", false, "claim for a freshly generated wallet")
	flag.Parse()

	if *newWallet {
		w := solana.NewWallet()
		*wallet = w.PublicKey().String()
		fmt.Println("Generated wallet:", *wallet)
		fmt.Println("Private key:", w.PrivateKey.String())
	}
	if *wallet == "" {
		flag.Usage()
		os.Exit(2)
	}
	base := strings.TrimRight(*baseURL, "/")

	if *status {
		claim, err := doGet[storage.Claim](base + "/api/airdrop/claims/" + *wallet)
		if err != nil {
			exit(err)
		}
		fmt.Printf("Wallet:    %s\nStatus:    %s\nSignature: %s\nClaimed:   %s\n",
			claim.Wallet, claim.Status, claim.Signature, claim.CreatedAt)
		return
	}

	fmt.Println("#============ AIRDROP CLAIM START ============#")
	resp, err := doPost[airdrop.ClaimResponse](base+"/api/airdrop", airdrop.ClaimRequest{WalletAddress: *wallet})
	if err != nil {
		exit(err)
	}
	fmt.Println(resp.Message)
	fmt.Println("Signature:", resp.Signature)
	fmt.Println("Explorer:", resp.ExplorerURL)
	fmt.Println("#============ AIRDROP CLAIM DONE ============#")
}

func exit(err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
		log.Printf("Claim rejected: %s", apiErr.Message)
		os.Exit(1)
	}
	log.Fatal(err)
}
