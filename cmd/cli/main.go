// Command glimpse is a donor-side CLI for the Glimpse ledger: wallet sign-in,
// building and sending donate transactions, recording and listing donations.
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/glimpsegive/glimpse-ledger/internal/escrow"
)

// ---- config/token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Wallet      string    `json:"wallet"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "glimpse")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "glimpse")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveToken(tf tokenFile) error {
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(tokenPath(), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tf)
}

func loadToken() (tokenFile, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return tokenFile{}, err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return tokenFile{}, err
	}
	if tf.AccessToken == "" || time.Now().After(tf.ExpiresAt) {
		return tokenFile{}, errors.New("no valid token (login required)")
	}
	return tf, nil
}

// ---- wallet ----

func loadKeypair(path string) (solana.PrivateKey, error) {
	if path == "" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, ".config", "solana", "id.json")
	}
	return solana.PrivateKeyFromSolanaKeygenFile(path)
}

// signInMessage renders the text the wallet signs to prove key ownership.
func signInMessage(wallet solana.PublicKey, domain, nonce string, issued time.Time) string {
	return fmt.Sprintf("%s wants to sign in with your Solana account:\n%s\n\nSign in to Glimpse\n\nURI: %s\nNonce: %s\nIssued At: %s",
		domain, wallet, domain, nonce, issued.UTC().Format(time.RFC3339))
}

func signIn(ctx context.Context, c *apiClient, key solana.PrivateKey) (tokenFile, error) {
	n, err := c.nonce(ctx)
	if err != nil {
		return tokenFile{}, err
	}
	msg := []byte(signInMessage(key.PublicKey(), c.base, n, time.Now()))
	sig, err := key.Sign(msg)
	if err != nil {
		return tokenFile{}, err
	}
	pub := key.PublicKey()
	resp, err := c.signIn(ctx, signInRequest{
		Message:   base64.StdEncoding.EncodeToString(msg),
		Signature: base64.StdEncoding.EncodeToString(sig[:]),
		PublicKey: base64.StdEncoding.EncodeToString(pub[:]),
	})
	if err != nil {
		return tokenFile{}, err
	}
	return tokenFile{AccessToken: resp.Token, ExpiresAt: resp.ExpiresAt, Wallet: resp.Profile.WalletAddress}, nil
}

// signPrepared decodes an unsigned donate transaction, checks it encodes what
// the server reported, and signs it with key.
func signPrepared(prep prepareResponse, key solana.PrivateKey) (*solana.Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(prep.Transaction)
	if err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	if !tx.Message.AccountKeys[0].Equals(key.PublicKey()) {
		return nil, errors.New("prepared transaction is for a different fee payer")
	}
	if err := checkDonate(tx, prep); err != nil {
		return nil, err
	}
	tx.Signatures = nil
	if _, err := tx.Sign(func(k solana.PublicKey) *solana.PrivateKey {
		if k.Equals(key.PublicKey()) {
			return &key
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return tx, nil
}

// checkDonate requires exactly one donate instruction whose amount and vault
// match the prepare response.
func checkDonate(tx *solana.Transaction, prep prepareResponse) error {
	found := 0
	for _, ix := range tx.Message.Instructions {
		units, err := escrow.DecodeDonateData(ix.Data)
		if errors.Is(err, escrow.ErrNotDonate) {
			continue
		}
		if err != nil {
			return fmt.Errorf("decode donate data: %w", err)
		}
		found++
		if units != prep.BaseUnits {
			return fmt.Errorf("prepared transaction moves %d base units, expected %d", units, prep.BaseUnits)
		}
		if len(ix.Accounts) < 2 || int(ix.Accounts[1]) >= len(tx.Message.AccountKeys) ||
			tx.Message.AccountKeys[ix.Accounts[1]].String() != prep.Vault {
			return errors.New("prepared transaction does not pay the reported vault")
		}
	}
	if found != 1 {
		return fmt.Errorf("prepared transaction has %d donate instructions", found)
	}
	return nil
}

// ---- utils ----

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func usage() {
	fmt.Fprintf(os.Stderr, `glimpse CLI
Usage:
  glimpse -api URL [-keypair file] <cmd> [args]

Commands:
  version
  login                                     (signs a nonce, saves token)
  donate   -need <slug> -amount <usdc> [-rpc URL] [-note text]
                                            (prepare, sign, send, record)
  record   -sig <signature> [-need <slug>] [-note text]
  history
`)
	os.Exit(2)
}

func fail(err error) {
	var ae *apiError
	if errors.As(err, &ae) {
		fmt.Fprintf(os.Stderr, "api error: status=%d msg=%s\n", ae.Status, ae.Message)
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	api := flag.String("api", "http://localhost:8080", "ledger API base URL")
	keypair := flag.String("keypair", "", "Solana keygen file (default ~/.config/solana/id.json)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd, args := flag.Arg(0), flag.Args()[1:]

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()
	c := newAPIClient(*api)

	switch cmd {

	case "version":
		fmt.Printf("glimpse %s (%s)\n", version, buildDate)

	case "login":
		key, err := loadKeypair(*keypair)
		if err != nil {
			fail(err)
		}
		tf, err := signIn(ctx, c, key)
		if err != nil {
			fail(err)
		}
		if err := saveToken(tf); err != nil {
			fail(err)
		}
		fmt.Printf("signed in as %s until %s\n", tf.Wallet, tf.ExpiresAt.Format(time.RFC3339))

	case "donate":
		fs := flag.NewFlagSet("donate", flag.ExitOnError)
		need := fs.String("need", "", "need slug")
		amount := fs.Float64("amount", 0, "USDC amount, e.g. 12.5")
		rpcURL := fs.String("rpc", rpc.DevNet_RPC, "Solana RPC endpoint")
		note := fs.String("note", "", "note stored with the donation")
		_ = fs.Parse(args)
		if *need == "" {
			usage()
		}
		amt, err := escrow.AmountFromFloat(*amount)
		if err != nil {
			fail(fmt.Errorf("amount: %w", err))
		}
		tf, err := loadToken()
		if err != nil {
			fail(err)
		}
		key, err := loadKeypair(*keypair)
		if err != nil {
			fail(err)
		}

		prep, err := c.prepare(ctx, prepareRequest{Donor: key.PublicKey().String(), NeedSlug: *need, Amount: amt})
		if err != nil {
			fail(err)
		}
		tx, err := signPrepared(prep, key)
		if err != nil {
			fail(err)
		}
		sig, err := rpc.New(*rpcURL).SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			PreflightCommitment: rpc.CommitmentConfirmed,
		})
		if err != nil {
			fail(fmt.Errorf("send transaction: %w", err))
		}
		fmt.Fprintf(os.Stderr, "sent %s to %s, waiting for finalization\n", sig, prep.Vault)

		id, err := c.recordWhenFinal(ctx, tf.AccessToken, recordRequest{
			TxSignature:   sig.String(),
			WalletAddress: key.PublicKey().String(),
			NeedSlug:      *need,
			Note:          *note,
		}, 3*time.Second)
		if err != nil {
			fail(err)
		}
		printJSON(map[string]string{"id": id, "tx_signature": sig.String()})

	case "record":
		fs := flag.NewFlagSet("record", flag.ExitOnError)
		sig := fs.String("sig", "", "transaction signature")
		need := fs.String("need", "", "need slug")
		note := fs.String("note", "", "note stored with the donation")
		_ = fs.Parse(args)
		if *sig == "" {
			usage()
		}
		tf, err := loadToken()
		if err != nil {
			fail(err)
		}
		id, err := c.record(ctx, tf.AccessToken, recordRequest{
			TxSignature: *sig, WalletAddress: tf.Wallet, NeedSlug: *need, Note: *note,
		})
		if err != nil {
			fail(err)
		}
		printJSON(map[string]string{"id": id})

	case "history":
		tf, err := loadToken()
		if err != nil {
			fail(err)
		}
		rows, err := c.history(ctx, tf.AccessToken)
		if err != nil {
			fail(err)
		}
		printJSON(rows)

	default:
		usage()
	}
}
