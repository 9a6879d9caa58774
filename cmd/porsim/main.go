// Command porsim is the PoR engine simulator: it prepares files, registers
// them in a ledger, runs prove/verify round trips, and reports timings. It
// exists for operators and integration work; the networking, oracle, and
// penalty layers live outside this repository.
package main

import (
	"crypto/rand"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/keepernet/keepernet/pkg/field"
	"github.com/keepernet/keepernet/pkg/ledger"
	"github.com/keepernet/keepernet/pkg/log"
	"github.com/keepernet/keepernet/pkg/por"
)

func main() {
	app := &cli.App{
		Name:  "porsim",
		Usage: "proof-of-retrievability engine simulator",
		Commands: []*cli.Command{
			prepareCommand(),
			simulateCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Error("porsim failed", "err", err.Error())
		os.Exit(1)
	}
}

func prepareCommand() *cli.Command {
	return &cli.Command{
		Name:      "prepare",
		Usage:     "erasure-encode and commit a file, printing its metadata",
		ArgsUsage: "<path>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one file path")
			}
			path := c.Args().First()
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			_, meta, err := por.PrepareFile(data, path)
			if err != nil {
				return err
			}
			root := field.ToBytesLE(meta.Root)
			fmt.Printf("file_id:       %s\n", meta.FileID)
			fmt.Printf("root:          %x\n", root)
			fmt.Printf("original_size: %d\n", meta.OriginalSize)
			fmt.Printf("padded_len:    %d\n", meta.PaddedLen)
			fmt.Printf("depth:         %d\n", meta.Depth())
			fmt.Printf("codewords:     %d\n", meta.NumCodewords())
			return nil
		},
	}
}

func simulateCommand() *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "run a full prove/verify round trip over generated files",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "files", Value: 2, Usage: "number of files in the batch"},
			&cli.IntFlag{Name: "size", Value: 4096, Usage: "bytes per generated file"},
			&cli.IntFlag{Name: "steps", Value: 3, Usage: "challenges (recursive steps) per file"},
			&cli.Uint64Flag{Name: "block-height", Value: 1000, Usage: "oracle block height"},
			&cli.StringFlag{Name: "prover-id", Value: "node_1", Usage: "prover identity"},
		},
		Action: runSimulate,
	}
}

func runSimulate(c *cli.Context) error {
	logger := log.Default().Module("simulator")

	numFiles := c.Int("files")
	size := c.Int("size")
	steps := c.Int("steps")
	height := c.Uint64("block-height")
	proverID := c.String("prover-id")

	led := ledger.New()
	var files []*por.PreparedFile
	var challenges []por.Challenge

	for i := 0; i < numFiles; i++ {
		data := make([]byte, size)
		if _, err := rand.Read(data); err != nil {
			return err
		}
		pf, meta, err := por.PrepareFile(data, fmt.Sprintf("sim-%d.dat", i))
		if err != nil {
			return err
		}
		if err := led.Add(meta.FileID, meta.Root, uint64(meta.Depth())); err != nil {
			return err
		}
		files = append(files, pf)
		challenges = append(challenges, por.Challenge{
			FileMetadata:  *meta,
			BlockHeight:   height + uint64(i),
			NumChallenges: steps,
			Seed:          field.FromUint64(height + uint64(i)),
			ProverID:      proverID,
		})
		logger.Info("file committed", "file_id", meta.FileID, "depth", meta.Depth())
	}

	proof, err := por.Prove(files, challenges, led)
	if err != nil {
		return err
	}

	wire, err := proof.ToBytes()
	if err != nil {
		return err
	}
	logger.Info("proof serialized", "bytes", len(wire), "challenge_ids", len(proof.ChallengeIDs))

	decoded, err := por.ProofFromBytes(wire)
	if err != nil {
		return err
	}

	ok, err := por.Verify(decoded, challenges, led)
	if err != nil {
		return err
	}
	logger.Info("verification finished", "valid", ok)
	if !ok {
		return fmt.Errorf("simulation produced an invalid proof")
	}
	fmt.Println("ok")
	return nil
}
