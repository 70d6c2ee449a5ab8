package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Command level messages (info)
		"Estimating %s (%s metric)...":    "%s を推定中 (%s メトリクス)...",
		"Output saved to %s":              "出力を %s に保存しました",
		"Summary saved to %s":             "サマリーを %s に保存しました",
		"Pipeline completed successfully": "パイプラインが正常に完了しました",
		"Starting pipeline":               "パイプラインを開始します",
		"Interrupted, shutting down...":   "中断されました。シャットダウン中...",
		"loadsim version %s":              "loadsim バージョン %s",
		"Unknown preset: %s":              "不明なプリセット: %s",

		// Input and graph
		"Loaded %d requests and %d tasks":            "%d 件のリクエストと %d 件のタスクを読み込みました",
		"Dependency graph built: %d nodes":           "依存グラフを構築しました: %d ノード",
		"Graph diagnostic: %s":                       "グラフ診断: %s",
		"Dropped edge %s -> %s to break a dependency cycle": "依存関係の循環を断つためにエッジ %s -> %s を除去しました",
		"Skipping record %s: invalid start time":     "レコード %s をスキップします: 開始時刻が不正です",

		// Scenarios and simulation
		"Scenario %s: %d nodes (%d excluded)":           "シナリオ %s: %d ノード (%d 件除外)",
		"Simulating %d scenarios under %d presets":      "%d シナリオを %d プリセットでシミュレーション中",
		"%s could not be estimated: %s":                 "%s は推定できませんでした: %s",
		"Scenario %s could not be estimated: %s":        "シナリオ %s は推定できませんでした: %s",
		"%s: %.0f ms":                                   "%s: %.0f ms",
		"Idle periods: %d, quasi-idle periods: %d":      "アイドル期間: %d, 準アイドル期間: %d",

		// Capture (browser component)
		"Capturing %s":                                  "%s をキャプチャ中",
		"Launching browser in headless mode":            "ヘッドレスモードでブラウザを起動中",
		"Launching browser in visible mode":             "表示モードでブラウザを起動中",
		"Navigating to %s":                              "%s へ移動中",
		"Setting network conditions: %d ms latency, %d bps down, %d bps up": "ネットワーク条件を設定: レイテンシ %d ms, ダウン %d bps, アップ %d bps",
		"Setting CPU throttling: %.1fx slowdown":        "CPUスロットリングを設定: %.1f倍 減速",
		"Captured %d requests in %d ms":                 "%d 件のリクエストを %d ms でキャプチャしました",
		"Capture timed out after %d ms":                 "キャプチャが %d ms でタイムアウトしました",
		"Network quasi-idle after %.0f ms":              "ネットワークが %.0f ms で準アイドルになりました",
		"Browser closed":                                "ブラウザを閉じました",

		// Errors
		"Failed to read records: %s":           "レコードの読み込みに失敗しました: %s",
		"Failed to build dependency graph: %s": "依存グラフの構築に失敗しました: %s",
		"Failed to derive scenarios: %s":       "シナリオの導出に失敗しました: %s",
		"Failed to simulate scenarios: %s":     "シミュレーションに失敗しました: %s",
		"Failed to capture page: %s":           "ページのキャプチャに失敗しました: %s",
		"Failed to stop capture: %s":           "キャプチャの停止に失敗しました: %s",
		"Failed to write output: %s":           "出力の書き込みに失敗しました: %s",
		"Failed to write summary: %s":          "サマリーの書き込みに失敗しました: %s",
		"Failed to load config: %s":            "設定の読み込みに失敗しました: %s",

		// Summary labels
		"Estimate Summary":        "推定サマリー",
		"Item":                    "項目",
		"Value":                   "値",
		"Name":                    "名前",
		"Metric":                  "メトリクス",
		"Point of Interest":       "注目時点",
		"Graph Nodes":             "グラフノード数",
		"Requests":                "リクエスト数",
		"Tasks":                   "タスク数",
		"Transfer Size":           "転送サイズ",
		"Estimates":               "推定値",
		"Scenario":                "シナリオ",
		"Preset":                  "プリセット",
		"Completion":              "完了時刻",
		"Could not be estimated":  "推定不可",
		"Throttling":              "スロットリング",
		"RTT":                     "RTT",
		"Throughput":              "スループット",
		"CPU Slowdown":            "CPU減速",
		"Connections":             "接続数",
		"Unthrottled":             "制限なし",
		"Quiet Periods":           "静穏期間",
		"Idle":                    "アイドル",
		"Quasi-idle":              "準アイドル",
		"None":                    "なし",
		"ongoing":                 "継続中",
		"Diagnostics":             "診断",
		"Generated by":            "生成",
		"2006-01-02 15:04:05 MST": "2006年01月02日 15:04:05 MST",
	})
}
