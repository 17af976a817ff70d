package report

import (
	"encoding/csv"
	"io"
	"strconv"
)

// WriteCSV exporta o snapshot em três blocos: balanço por apostador,
// comissões por partida (com total) e detalhe das apostas
func WriteCSV(w io.Writer, s Snapshot) error {
	cw := csv.NewWriter(w)

	rows := [][]string{{"bettor", "final_balance", "total_staked", "total_returned", "net"}}
	for _, b := range s.Balances {
		rows = append(rows, []string{b.Name, b.FinalBalance.StringFixed(2), b.TotalStaked.StringFixed(2),
			b.TotalReturned.StringFixed(2), b.Net.StringFixed(2)})
	}

	rows = append(rows, nil, []string{"match", "winner", "house_commission"})
	for _, m := range s.Matches {
		rows = append(rows, []string{m.Side1Name + " vs " + m.Side2Name, m.WinnerName, m.HouseCommission.StringFixed(2)})
	}
	rows = append(rows, []string{"TOTAL", "", s.HouseProfit.StringFixed(2)})

	rows = append(rows, nil, []string{"match_id", "bettor", "match", "chosen", "staked", "paid_out", "net", "result"})
	for _, l := range s.Wagers {
		rows = append(rows, []string{strconv.FormatInt(l.MatchID, 10), l.Bettor, l.MatchName, l.ChosenName,
			l.Staked.StringFixed(2), l.PaidOut.StringFixed(2), l.Net.StringFixed(2), l.Result})
	}

	for _, r := range rows {
		if err := cw.Write(r); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
