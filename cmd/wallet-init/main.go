// wallet-init 从 BIP-39 助记词派生签名私钥，写入加密的 badger 密钥存储。
// 跟单主程序（cmd/bot）在未直接配置私钥时从该存储读取。
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	hdwallet "github.com/miguelmota/go-ethereum-hdwallet"

	"github.com/betbot/mirrorcow/pkg/secretstore"
)

func main() {
	var (
		dbPath    = flag.String("badger", getenv("MIRROR_SECRET_DB", "data/secrets.badger"), "badger 密钥存储路径")
		secretKey = flag.String("secret-key", getenv("MIRROR_SECRET_KEY", ""), "badger 加密密钥（32 字节，base64 或 hex）")
		derivPath = flag.String("path", "m/44'/60'/0'/0/0", "BIP-44 派生路径")
		funder    = flag.String("funder", "", "资金地址（Polymarket 代理钱包，0x...）")
		dryRun    = flag.Bool("dry-run", false, "只打印派生结果，不写入存储")
		force     = flag.Bool("force", false, "已存在私钥时覆盖")
	)
	flag.Parse()

	keyBytes, err := secretstore.ParseKey(*secretKey)
	if err != nil {
		fatal(err)
	}
	if keyBytes == nil {
		fatal(fmt.Errorf("缺少加密密钥：设置 MIRROR_SECRET_KEY 或传入 -secret-key"))
	}

	fmt.Fprintln(os.Stderr, "请输入助记词（12/15/18/21/24 个单词），输入完成后回车：")
	mnemonic := strings.TrimSpace(readLine())
	if mnemonic == "" {
		fatal(fmt.Errorf("助记词为空"))
	}

	privateKeyHex, eoaAddress, err := deriveWallet(mnemonic, *derivPath)
	if err != nil {
		fatal(err)
	}

	if *dryRun {
		fmt.Println("derivation_path:", *derivPath)
		fmt.Println("eoa_address:", eoaAddress)
		fmt.Println("private_key_hex:", privateKeyHex)
		return
	}

	ss, err := secretstore.Open(secretstore.OpenOptions{
		Path:          *dbPath,
		EncryptionKey: keyBytes,
		ReadOnly:      false,
	})
	if err != nil {
		fatal(err)
	}
	defer ss.Close()

	if _, exists, err := ss.GetString(secretstore.KeyWalletPrivateKey); err != nil {
		fatal(err)
	} else if exists && !*force {
		fatal(fmt.Errorf("存储中已有私钥（使用 -force 覆盖）"))
	}

	if err := ss.SetString(secretstore.KeyWalletPrivateKey, privateKeyHex); err != nil {
		fatal(err)
	}
	if strings.TrimSpace(*funder) != "" {
		if err := ss.SetString(secretstore.KeyFunderAddress, strings.TrimSpace(*funder)); err != nil {
			fatal(err)
		}
	}

	fmt.Fprintf(os.Stderr, "已写入 %s\neoa_address: %s\n", *dbPath, eoaAddress)
}

func deriveWallet(mnemonic string, derivationPath string) (privateKeyHex string, eoaAddress string, err error) {
	w, err := hdwallet.NewFromMnemonic(mnemonic)
	if err != nil {
		return "", "", fmt.Errorf("助记词无效: %w", err)
	}
	path, err := hdwallet.ParseDerivationPath(derivationPath)
	if err != nil {
		return "", "", fmt.Errorf("派生路径无效: %w", err)
	}
	acct, err := w.Derive(path, false)
	if err != nil {
		return "", "", fmt.Errorf("派生失败: %w", err)
	}
	pk, err := w.PrivateKeyHex(acct)
	if err != nil {
		return "", "", fmt.Errorf("导出私钥失败: %w", err)
	}
	return pk, acct.Address.Hex(), nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func readLine() string {
	br := bufio.NewReader(os.Stdin)
	s, _ := br.ReadString('\n')
	return strings.TrimSpace(s)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err.Error())
	os.Exit(1)
}
