// Package main 提供 dxtrust 命令行入口
//
// 管理信任目录中的身份：
//
//	dxtrust [flags] list
//	dxtrust [flags] generate <name>
//	dxtrust [flags] import <name> <file.pub>
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dep2p/go-dx/config"
	"github.com/dep2p/go-dx/internal/core/identity"
)

var trustDir = flag.String("trust-dir", "", "信任目录（默认: ~/.dx）")

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "用法: %s [flags] list | generate <name> | import <name> <file.pub>\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(os.Stdout, *trustDir, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run(out io.Writer, dir string, args []string) error {
	if len(args) == 0 {
		flag.Usage()
		return fmt.Errorf("缺少子命令")
	}

	cfg := config.IdentityConfig{TrustDir: dir}
	resolved, err := cfg.ResolveTrustDir()
	if err != nil {
		return err
	}

	switch args[0] {
	case "list":
		return list(out, resolved)
	case "generate":
		if len(args) != 2 {
			return fmt.Errorf("generate 需要一个身份名")
		}
		cfg.Name = args[1]
		if err := cfg.Validate(); err != nil {
			return err
		}
		id, err := identity.GenerateIdentity(resolved, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "已生成 %s: %s\n", id.Name(), id.ID())
		return nil
	case "import":
		if len(args) != 3 {
			return fmt.Errorf("import 需要身份名和公钥文件")
		}
		pub, err := identity.LoadPublicKeyPEM(args[2])
		if err != nil {
			return err
		}
		id, err := identity.ImportPublicKey(resolved, args[1], pub)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "已导入 %s: %s\n", id.Name(), id.ID())
		return nil
	default:
		return fmt.Errorf("未知子命令 %q", args[0])
	}
}

func list(out io.Writer, dir string) error {
	store, err := identity.LoadTrustStore(dir)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPEER ID\tPRIVATE")
	for _, id := range store.Identities() {
		private := "no"
		if id.HasPrivateKey() {
			private = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", id.Name(), id.ID(), private)
	}
	return w.Flush()
}
