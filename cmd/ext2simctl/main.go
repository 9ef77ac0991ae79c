package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	ext2 "github.com/RoManTic127/filesystem-of-linux"
)

func main() {
	app := cli.App{
		Usage: "Create and inspect ext2-style simulator disk images",
		Commands: []*cli.Command{
			{
				Name:      "format",
				Usage:     "Create or wipe an image file with a fresh filesystem",
				Action:    formatImage,
				ArgsUsage: "IMAGE_FILE",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "blocks", Value: ext2.DefaultMaxBlocks, Usage: "total blocks in the image"},
					&cli.UintFlag{Name: "inodes", Value: ext2.DefaultMaxInodes, Usage: "total inodes in the image"},
				},
			},
			{
				Name:      "fsck",
				Usage:     "Mount an image and report its superblock and free-space counters",
				Action:    fsckImage,
				ArgsUsage: "IMAGE_FILE",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

func formatImage(ctx *cli.Context) error {
	path := ctx.Args().First()
	if path == "" {
		return cli.Exit("an image file path is required", 1)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	opts := ext2.FormatOptions{
		TotalBlocks: uint32(ctx.Uint("blocks")),
		TotalInodes: uint32(ctx.Uint("inodes")),
	}
	if err := ext2.Format(f, opts); err != nil {
		return err
	}

	fmt.Printf("formatted %s (%d blocks, %d inodes)\n", path, opts.TotalBlocks, opts.TotalInodes)
	return nil
}

func fsckImage(ctx *cli.Context) error {
	path := ctx.Args().First()
	if path == "" {
		return cli.Exit("an image file path is required", 1)
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	fsys, err := ext2.Mount(f, path)
	if err != nil {
		return err
	}
	defer fsys.Unmount()

	status, err := fsys.Status()
	if err != nil {
		return err
	}

	fmt.Printf("image:        %s\n", status.ImagePath)
	fmt.Printf("blocks:       %d free / %d total\n", status.FreeBlocks, status.TotalBlocks)
	fmt.Printf("inodes:       %d free / %d total\n", status.FreeInodes, status.TotalInodes)
	fmt.Printf("current user: %s\n", status.CurrentUser)
	return nil
}
