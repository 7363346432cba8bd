package config

// DefaultTrustedDomains is the built-in allow-list of official and primary legal
// sources. Results from these domains (or their subdomains) are flagged as verified.
var DefaultTrustedDomains = []string{
	"abyssinialaw.com", "aera.gov.in", "aerb.gov.in", "africanlii.org", "aftdelhi.nic.in",
	"allahabadhighcourt.in", "amsshardul.com", "aphc.gov.in", "aptel.gov.in", "arbitratead.ae",
	"asianlii.org", "asil.org", "asser.nl", "atfp.gov.in", "austlii.edu.au", "avalon.law.yale.edu",
	"azbpartners.com", "bailii.org", "bananaip.com", "blogs.law.ox.ac.uk", "bombayhighcourt.nic.in",
	"boutique-dalloz.fr", "calcuttahighcourt.gov.in", "canlii.org", "case.law",
	"caselaw.nationalarchives.gov.uk", "cci.gov.in", "cdsco.gov.in", "cea.nic.in", "cercind.gov.in",
	"cestat.gov.in", "cgat.gov.in", "cgit.labour.gov.in", "clc.gov.in", "clpr.org.in", "coe.int",
	"commerce.gov.in", "commonlii.org", "cylaw.org", "cyrilshroff.com", "decisions.scc-csc.ca",
	"delhidistrictcourts.nic.in", "delhihighcourt.nic.in", "dgca.gov.in", "dgms.gov.in",
	"difccourts.ae", "districts.ecourts.gov.in", "doj.gov.in", "droit.org", "drt.gov.in",
	"dsklegal.com", "eci.gov.in", "ecommitteesci.gov.in", "ecourts.gov.in", "egazette.nic.in",
	"ejil.org", "elegislation.gov.hk", "elplaw.in", "epfindia.gov.in", "eur-lex.europa.eu",
	"finmin.gov.in", "freelaw.in", "fssai.gov.in", "ghconline.gov.in", "globalarbitrationreview.com",
	"goidirectory.gov.in", "gov.uk", "greentribunal.gov.in", "guides.ll.georgetown.edu",
	"guides.loc.gov", "gujarathighcourt.nic.in", "harvardlawreview.org", "hcmadras.tn.gov.in",
	"hcmimphal.nic.in", "hcraj.nic.in", "hcs.gov.in", "highcourt.cg.gov.in", "highcourt.hp.gov.in",
	"highcourt.kerala.gov.in", "highcourtchd.gov.in", "highcourtofuttarakhand.gov.in", "hklii.org",
	"hollis.harvard.edu", "housing.gov.in", "ibbi.gov.in", "icc-cpi.int", "iccwbo.org", "iclg.com",
	"icrc.org", "icsi.edu", "ifsca.gov.in", "igsg.cnr.it", "ikigailaw.com", "ilo.org", "imf.org",
	"india.gov.in", "indiacode.nic.in", "innertemplelibrary.com", "institutrobertbadinter.fr",
	"internationalcompetitionnetwork.org", "ipindia.gov.in", "irdai.gov.in", "itat.gov.in", "jade.io",
	"jgu.edu.in", "jharkhandhighcourt.nic.in", "jkhighcourt.nic.in", "jsalaw.com",
	"judgments.ecourts.gov.in", "judiciary.karnataka.gov.in", "jura.uni-saarland.de",
	"juridicas.unam.mx", "jurisguide.univ-paris1.fr", "justia.com", "justice.gouv.fr",
	"justice.govt.nz", "kandspartners.com", "kenyalaw.org", "klri.re.kr", "labour.gov.in",
	"labourbureau.gov.in", "law.asia", "law.cornell.edu", "law.ox.ac.uk",
	"lawcommissionofindia.nic.in", "lawmin.gov.in", "lawphil.net", "laws.africa", "legal-tools.org",
	"legal.un.org", "legalabbrevs.cardiff.ac.uk", "legalref.judiciary.hk", "legifrance.gouv.fr",
	"legislation.govt.nz", "legislationline.org", "lexology.com", "lieber.westpoint.edu",
	"lii-austria.org", "liiofindia.org", "luthra.com", "malawilii.org", "mca.gov.in",
	"meghalayahighcourt.nic.in", "mondaq.com", "mphc.gov.in", "nabard.org", "ncdrc.nic.in",
	"nclat.nic.in", "nclt.gov.in", "newyorkconvention.org", "nfra.gov.in", "nhb.org.in",
	"nhrc.nic.in", "nishithdesai.com", "njdg.ecourts.gov.in", "nliulawreview.nliu.ac.in", "nls.ac.in",
	"nlsir.com", "nlujlawreview.in", "nmc.org.in", "nppaindia.nic.in", "nslr.in", "nujslawreview.org",
	"nurembergacademy.org", "nyulawglobal.org", "oas.org", "orissahighcourt.nic.in", "paclii.org",
	"patnahighcourt.gov.in", "peacepalacelibrary.nl", "pfrda.org.in", "pngrb.gov.in", "prsindia.org",
	"pudr.org", "rbi.org.in", "rct.indianrail.gov.in", "remfry.com", "repository.nls.ac.in",
	"resources.ials.sas.ac.uk", "saflii.org", "samlii.org", "sansad.nic.in", "satweb.sat.gov.in",
	"scobserver.in", "sebi.gov.in", "seylii.org", "siac.org.sg", "sierralii.org", "site.unibo.it",
	"spicyip.com", "sso.agc.gov.sg", "supremecourt.gov", "tariffauthority.gov.in", "tdsat.gov.in",
	"thc.nic.in", "trai.gov.in", "trustbridge.in", "tshc.gov.in", "uaelegislation.gov.ae", "un.org",
	"uncitral.un.org", "unctad.org", "upsc.gov.in", "vidhilegalpolicy.in", "wdra.gov.in", "wipo.int",
	"worldtradelaw.net", "wto.org", "yalelawjournal.org",
}
