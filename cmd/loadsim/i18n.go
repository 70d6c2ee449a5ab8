package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Flag categories
		"Input":                 "入力",
		"Output":                "出力先",
		"Estimation":            "推定",
		"Custom Preset":         "カスタムプリセット",
		"Capture":               "キャプチャ",
		"Browser":               "ブラウザ設定",
		"Performance Emulation": "性能エミュレーション",
		"Debug":                 "デバッグ",
		"Logging":               "ログ",

		// Commands
		"Estimate page load timings under simulated network and CPU conditions": "シミュレートしたネットワークとCPU条件でページ読み込み時間を推定",
		"Estimate metric timings from a recorded page load":                     "記録したページ読み込みからメトリクスの時刻を推定",
		"Record the network requests of a page load":                            "ページ読み込みのネットワークリクエストを記録",
		"Print the idle and quasi-idle periods of a recorded page load":         "記録したページ読み込みのアイドル期間と準アイドル期間を表示",
		"Show version information":                                              "バージョン情報を表示",

		// Input and output flags
		"YAML configuration file":      "YAML設定ファイル",
		"Network records JSON file":    "ネットワークレコードのJSONファイル",
		"Main-thread tasks JSON file":  "メインスレッドタスクのJSONファイル",
		"Name of the recorded load":    "記録した読み込みの名前",
		"Output report JSON path":      "出力レポートのJSONパス",
		"Output records JSON path":     "出力レコードのJSONパス",
		"Output execution summary to file (Markdown format)": "実行サマリーをファイルに出力（Markdown形式）",

		// Estimation flags
		"Device defaults (mobile, desktop)":              "デバイスの既定値（mobile, desktop）",
		"Metric to estimate (fcp, lcp, interactive)":     "推定するメトリクス（fcp, lcp, interactive）",
		"When the metric was observed, in microseconds since navigation start": "メトリクスを観測した時刻（ナビゲーション開始からのマイクロ秒）",
		"Throttling preset, repeatable (%s)":             "スロットリングプリセット、複数指定可（%s）",
		"Concurrent scenario runs (0 = one per CPU)":     "シナリオの並列実行数（0 = CPU数）",
		"Custom preset round-trip time in milliseconds":  "カスタムプリセットのRTT（ミリ秒）",
		"Custom preset throughput in Mbps (0 = unlimited)": "カスタムプリセットのスループット（Mbps、0 = 無制限）",
		"Custom preset CPU slowdown factor":              "カスタムプリセットのCPU減速係数",
		"Custom preset connections per origin":           "カスタムプリセットのオリジンあたり接続数",

		// Capture flags
		"Recording timeout in seconds":                             "記録のタイムアウト秒数",
		"Network idle time that ends the capture, in milliseconds": "キャプチャを終了するネットワーク静止時間（ミリ秒）",
		"Capture latency in milliseconds":                          "キャプチャ時のレイテンシ（ミリ秒）",
		"Download speed in Mbps (0 = unlimited)":                   "ダウンロード速度（Mbps、0 = 無制限）",
		"Upload speed in Mbps (0 = unlimited)":                     "アップロード速度（Mbps、0 = 無制限）",
		"CPU slowdown factor (1.0 = no throttling, 4.0 = 4x slower)": "CPUスローダウン係数（1.0 = 制限なし、4.0 = 4倍遅く）",

		// Browser flags
		"Run browser in non-headless mode":              "ブラウザを非ヘッドレスモードで実行",
		"Path to Chrome executable":                     "Chrome実行ファイルのパス",
		"User agent override":                           "ユーザーエージェントの上書き",
		"Extra request header as \"Name: value\", repeatable": "追加リクエストヘッダー（\"Name: value\" 形式、複数指定可）",
		"Ignore HTTPS certificate errors":               "HTTPS証明書エラーを無視",
		"HTTP proxy server (e.g., http://proxy:8080)":   "HTTPプロキシサーバー（例: http://proxy:8080）",
		"Disable incognito mode":                        "シークレットモードを無効化",

		// Debug flags
		"Enable debug output":        "デバッグ出力を有効化",
		"Directory for debug output": "デバッグ出力のディレクトリ",

		// Logging flags
		"Log level (debug, info, warn, error)": "ログレベル（debug, info, warn, error）",
		"Suppress all log output":              "全てのログ出力を抑制",

		// Error messages
		"URL argument is required": "URL引数が必要です",
		"Records file is required": "レコードファイルが必要です",
		"Invalid header: %s":       "不正なヘッダー: %s",
	})
}
